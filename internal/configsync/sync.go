package configsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
)

const (
	heartbeatIntervalMs = 15000
	pullIntervalMs      = 15000
	httpTimeout         = 10 * time.Second
	tickInterval        = time.Second
)

// newReconnectBackoff builds the clamped reconnect schedule spec §4.G
// step 1 names literally (1, 2, 4, 8, 16, 30 seconds): an
// ExponentialBackOff with randomization disabled so NextBackOff is
// deterministic, doubling each attempt and capped at 30s, retried
// forever (MaxElapsedTime=0). This is the ecosystem's
// backoff.ExponentialBackOff standing in for a hand-rolled backoff
// table (grounded on the retrieval pack's own attestation count for
// github.com/cenkalti/backoff/v4).
func newReconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Syncer is the Dynamic Configuration Synchroniser (spec §4.G). It runs
// on its own dedicated loop (Run), communicating with the rest of the
// system only through the shared cmn.ConfigOwner and the persisted
// config file (spec §5: "Swapping the live reference is the sole
// synchronisation primitive between sync and scheduler").
type Syncer struct {
	serverID  string
	streamURL string
	pullURL   string
	ackURL    string
	authToken string

	cfg   *cmn.ConfigOwner
	store *Store

	client *http.Client

	conn     *websocket.Conn
	streamCh chan streamMessage

	reconnectBackoff *backoff.ExponentialBackOff
	nextReconnectAt  time.Time

	lastPingMs    int64
	lastPullMs    int64
	knownRevision int64
}

// NewSyncer builds a Syncer seeded with cfg's current revision as the
// known revision. The persisted config file carries no revision, so a
// Syncer built from a config that Store.Load read starts at revision 0.
func NewSyncer(serverID, streamURL, pullURL, ackURL, authToken string, cfg *cmn.ConfigOwner, store *Store) *Syncer {
	return &Syncer{
		serverID:         serverID,
		streamURL:        streamURL,
		pullURL:          pullURL,
		ackURL:           ackURL,
		authToken:        authToken,
		cfg:              cfg,
		store:            store,
		client:           &http.Client{Timeout: httpTimeout},
		reconnectBackoff: newReconnectBackoff(),
		knownRevision:    cfg.Get().Revision,
	}
}

// KnownRevision returns the highest envelope revision applied so far.
func (sy *Syncer) KnownRevision() int64 { return sy.knownRevision }

// Run drives the synchroniser until ctx is cancelled, ticking roughly
// once per second (spec §4.G: "one iteration per ~1 second").
func (sy *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sy.closeConn()
			return
		case now := <-ticker.C:
			sy.tick(now)
		}
	}
}

func (sy *Syncer) tick(now time.Time) {
	sy.ensureConnected(now)
	sy.drainStream(now)
	sy.maybeHeartbeat(now)
	sy.maybePull(now)
}

// ensureConnected attempts a reconnect once the backoff clamp allows it
// (spec §4.G step 1).
func (sy *Syncer) ensureConnected(now time.Time) {
	if sy.conn != nil {
		return
	}
	if now.Before(sy.nextReconnectAt) {
		return
	}
	u := sy.streamURL + "?server_id=" + url.QueryEscape(sy.serverID)
	conn, err := dialStream(context.Background(), u, sy.authToken)
	if err != nil {
		nlog.Warningf("configsync: connect failed: %v", err)
		sy.nextReconnectAt = now.Add(sy.reconnectBackoff.NextBackOff())
		return
	}
	sy.conn = conn
	sy.reconnectBackoff.Reset()
	sy.streamCh = make(chan streamMessage, 16)
	go readStream(conn, sy.streamCh)
	sy.lastPingMs = now.UnixMilli()
}

// drainStream processes every frame already buffered on the stream
// channel without blocking; a closed channel or read error tears the
// connection down so ensureConnected retries on a later tick.
func (sy *Syncer) drainStream(now time.Time) {
	if sy.streamCh == nil {
		return
	}
	for {
		select {
		case msg, ok := <-sy.streamCh:
			if !ok {
				sy.closeConn()
				return
			}
			if msg.Err != nil {
				nlog.Warningf("configsync: stream read error: %v", msg.Err)
				sy.closeConn()
				return
			}
			if msg.Envelope != nil {
				sy.handleEnvelope(*msg.Envelope, now)
			}
		default:
			return
		}
	}
}

func (sy *Syncer) closeConn() {
	if sy.conn != nil {
		sy.conn.Close()
	}
	sy.conn = nil
	sy.streamCh = nil
}

// maybeHeartbeat sends the 15s "ping" text frame (spec §4.G step 2); a
// write failure tears the connection down as a heartbeat failure.
func (sy *Syncer) maybeHeartbeat(now time.Time) {
	if sy.conn == nil {
		return
	}
	if now.UnixMilli()-sy.lastPingMs < heartbeatIntervalMs {
		return
	}
	sy.lastPingMs = now.UnixMilli()
	if err := sendPing(sy.conn); err != nil {
		nlog.Warningf("configsync: heartbeat failed: %v", err)
		sy.closeConn()
	}
}

// maybePull unconditionally polls the pull fallback every 15s regardless
// of stream health (spec §4.G step 3).
func (sy *Syncer) maybePull(now time.Time) {
	if now.UnixMilli()-sy.lastPullMs < pullIntervalMs {
		return
	}
	sy.lastPullMs = now.UnixMilli()
	env, err := sy.pull(context.Background())
	if err != nil {
		nlog.Warningf("configsync: pull failed: %v", err)
		return
	}
	if env != nil {
		sy.handleEnvelope(*env, now)
	}
}

func (sy *Syncer) pull(ctx context.Context) (*model.ConfigEnvelope, error) {
	u := fmt.Sprintf("%s?server_id=%s&after_revision=%d", sy.pullURL, url.QueryEscape(sy.serverID), sy.knownRevision)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := sy.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pull rejected with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var env model.ConfigEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// handleEnvelope is the apply pipeline of spec §4.G step 4: stale
// envelopes are dropped, otherwise the new config is computed, diffed,
// persisted, atomically swapped in, and acknowledged.
func (sy *Syncer) handleEnvelope(env model.ConfigEnvelope, now time.Time) {
	if env.Revision <= sy.knownRevision {
		return
	}

	old := sy.cfg.Get()
	oldMap := configToMap(old)
	next := applyMap(old, env.Config)
	next.Revision = env.Revision
	next.UpdatedAt = time.UnixMilli(env.UpdatedAtMs)
	next.UpdatedBy = env.UpdatedBy
	changed := diffKeys(oldMap, configToMap(next))

	status := model.AckApplied
	message := ""

	nlog.Infof("configsync: applying remote_revision_%d (%d changed keys)", env.Revision, len(changed))
	if err := sy.store.Save(next); err != nil {
		status = model.AckRejected
		message = err.Error()
		nlog.Warningf("configsync: persist revision %d failed: %v", env.Revision, err)
	} else {
		sy.cfg.Put(next)
		sy.knownRevision = env.Revision
	}

	ack := model.ConfigAck{
		ServerID:    sy.serverID,
		Revision:    env.Revision,
		Status:      status,
		AppliedAtMs: now.UnixMilli(),
		Message:     message,
		ChangedKeys: changed,
	}
	go sy.postAck(ack)
}

func (sy *Syncer) postAck(ack model.ConfigAck) {
	body, err := json.Marshal(ack)
	if err != nil {
		nlog.Warningf("configsync: marshal ack: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sy.ackURL, bytes.NewReader(body))
	if err != nil {
		nlog.Warningf("configsync: build ack request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := sy.client.Do(req)
	if err != nil {
		nlog.Warningf("configsync: post ack: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		nlog.Warningf("configsync: ack rejected with status %d", resp.StatusCode)
	}
}
