// Command latticed is the scanner daemon entrypoint: it wires an
// explicit AppContext (no package-level singletons, per Design Note 3)
// and runs the host tick loop that drives the Monitor Scheduler, the
// Progress Reporter and the Dynamic Configuration Synchroniser.
//
// There is no production host adapter in this repository (see the
// internal/hostbridge entry in DESIGN.md) — a real deployment embeds its own Bridge
// implementation at the one wiring point below. This binary substitutes
// hostbridge.Static seeded from the world root on disk, which is enough
// to exercise the full tick loop end to end and to give cmd/scanctl a
// live process to talk to over the control surface.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/configsync"
	"github.com/loopwic/lattice-scan/internal/control"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/monitor"
	"github.com/loopwic/lattice-scan/internal/nlog"
	"github.com/loopwic/lattice-scan/internal/progress"
	"github.com/loopwic/lattice-scan/internal/sink"
)

// appContext bundles every collaborator the tick loop touches. Nothing
// here is a package-level variable; main is the only place these are
// constructed and wired together.
type appContext struct {
	serverID  string
	scheduler *monitor.Scheduler
	syncer    *configsync.Syncer
	reporter  *progress.Reporter
}

func main() {
	var (
		serverID     = flag.String("server-id", "default", "server identifier sent with every outbound payload")
		worldRoot    = flag.String("world-root", ".", "world save directory, used to seed the static host bridge")
		configPath   = flag.String("config", "scanner.conf", "path to the persisted config file")
		sinkURL      = flag.String("sink-url", "http://127.0.0.1:8080/events", "event sink POST endpoint")
		progressURL  = flag.String("progress-url", "http://127.0.0.1:8080/ops/task-progress", "progress reporter POST endpoint")
		pullURL      = flag.String("pull-url", "http://127.0.0.1:8080/ops/mod-config/pull", "config sync pull endpoint")
		ackURL       = flag.String("ack-url", "http://127.0.0.1:8080/ops/mod-config/ack", "config sync ack endpoint")
		streamURL    = flag.String("stream-url", "ws://127.0.0.1:8080/ops/mod-config/stream", "config sync websocket endpoint")
		authToken    = flag.String("auth-token", "", "bearer token for the config sync websocket")
		controlAddr  = flag.String("control-addr", "127.0.0.1:7777", "address the operator control surface listens on")
		tickInterval = flag.Duration("tick-interval", time.Second, "host tick period driving the scheduler")
	)
	flag.Parse()

	app := newAppContext(*serverID, *worldRoot, *configPath, *sinkURL, *progressURL, *pullURL, *ackURL, *streamURL, *authToken)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go app.syncer.Run(ctx)
	go runControlServer(ctx, *controlAddr, app.scheduler)

	runTickLoop(ctx, app, *tickInterval)
	app.scheduler.Shutdown()
}

func newAppContext(serverID, worldRoot, configPath, sinkURL, progressURL, pullURL, ackURL, streamURL, authToken string) *appContext {
	store := configsync.NewStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		nlog.Warningf("latticed: no persisted config at %s, starting from defaults: %v", configPath, err)
		cfg = cmn.DefaultConfig()
	}
	cfgOwner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{WorldRootPath: worldRoot}
	evSink := sink.NewHTTPSink(sinkURL)

	scheduler := monitor.NewScheduler(serverID, cfgOwner, bridge, evSink, nil, nil)
	syncer := configsync.NewSyncer(serverID, streamURL, pullURL, ackURL, authToken, cfgOwner, store)
	reporter := progress.NewReporter(progressURL)

	return &appContext{
		serverID:  serverID,
		scheduler: scheduler,
		syncer:    syncer,
		reporter:  reporter,
	}
}

// runTickLoop is the host's own tick loop standing in for the real game
// engine's tick callback: it advances the scheduler and republishes both
// tasks' progress once per tick.
func runTickLoop(ctx context.Context, app *appContext, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			nowMs := now.UnixMilli()
			app.scheduler.Tick(nowMs)
			app.reporter.Report(ctx, app.serverID, progress.TaskScan, app.scheduler.ScanProgress())
			app.reporter.Report(ctx, app.serverID, progress.TaskAudit, app.scheduler.AuditProgress())
		}
	}
}

func runControlServer(ctx context.Context, addr string, scheduler *monitor.Scheduler) {
	srv := &http.Server{Addr: addr, Handler: control.NewServer(scheduler).Handler()}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		nlog.Errorf("latticed: control surface listen on %s: %v", addr, err)
		return
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		nlog.Errorf("latticed: control surface: %v", err)
	}
}
