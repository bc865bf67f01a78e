// Command scanctl is the minimal operator CLI named in spec §1's
// "operator demand" trigger: force-start either task and print or watch
// its Progress Record. It talks to a running cmd/latticed process over
// the internal/control loopback surface rather than embedding any
// scanner logic itself, the same separation the teacher's cli/commands
// package keeps from the AIStore cluster it drives over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/loopwic/lattice-scan/internal/control"
	"github.com/loopwic/lattice-scan/internal/model"
)

var addrFlag = cli.StringFlag{
	Name:  "addr",
	Value: "http://127.0.0.1:7777",
	Usage: "base URL of the running latticed control surface",
}

var watchFlag = cli.BoolFlag{
	Name:  "watch",
	Usage: "render a live progress bar until the task leaves RUNNING",
}

func main() {
	app := cli.NewApp()
	app.Name = "scanctl"
	app.Usage = "operator control for the storage scanner daemon"
	app.Flags = []cli.Flag{addrFlag}
	app.Commands = []cli.Command{
		{
			Name:  "force-scan",
			Usage: "force-start the storage scan task outside its configured interval",
			Flags: []cli.Flag{watchFlag},
			Action: func(c *cli.Context) error {
				client := control.NewClient(c.GlobalString(addrFlag.Name))
				ctx := context.Background()
				accepted, err := client.ForceScan(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("force-scan accepted: %v\n", accepted)
				if c.Bool(watchFlag.Name) {
					return watchTask(ctx, client, "scan", func(s control.StatusResponse) model.ProgressRecord { return s.Scan })
				}
				return nil
			},
		},
		{
			Name:  "force-audit",
			Usage: "force-start the online player audit task outside its configured interval",
			Flags: []cli.Flag{watchFlag},
			Action: func(c *cli.Context) error {
				client := control.NewClient(c.GlobalString(addrFlag.Name))
				ctx := context.Background()
				accepted, err := client.ForceAudit(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("force-audit accepted: %v\n", accepted)
				if c.Bool(watchFlag.Name) {
					return watchTask(ctx, client, "audit", func(s control.StatusResponse) model.ProgressRecord { return s.Audit })
				}
				return nil
			},
		},
		{
			Name:  "status",
			Usage: "print both tasks' current Progress Record",
			Action: func(c *cli.Context) error {
				client := control.NewClient(c.GlobalString(addrFlag.Name))
				status, err := client.Status(context.Background())
				if err != nil {
					return err
				}
				printRecord("scan", status.Scan)
				printRecord("audit", status.Audit)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "scanctl:", err)
		os.Exit(1)
	}
}

func printRecord(task string, rec model.ProgressRecord) {
	fmt.Printf("%-6s state=%-10s phase=%-16s done=%d/%d\n", task, rec.State, rec.Phase, rec.Counters.Done, rec.Counters.Total)
	if rec.Failure != nil {
		fmt.Printf("       failure=%s (%s)\n", rec.Failure.Code, rec.Failure.Message)
	}
}

// watchTask polls /status every 500ms and renders a single mpb bar
// tracking done/total until the task leaves RUNNING, the same polling
// loop shape the teacher's progressBar.run uses against the download
// status endpoint (cli/commands/downloader.go).
func watchTask(ctx context.Context, client *control.Client, label string, pick func(control.StatusResponse) model.ProgressRecord) error {
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	rec := pick(status)
	if !rec.Running() {
		printRecord(label, rec)
		return nil
	}

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(rec.Counters.Total,
		mpb.PrependDecorators(decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DSyncWidthR})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d/%d")),
	)
	doneSoFar := rec.Counters.Done
	bar.IncrBy(int(doneSoFar))

	for rec.Running() {
		time.Sleep(500 * time.Millisecond)
		status, err = client.Status(ctx)
		if err != nil {
			return err
		}
		rec = pick(status)
		if delta := rec.Counters.Done - doneSoFar; delta > 0 {
			bar.IncrBy(int(delta))
			doneSoFar = rec.Counters.Done
		}
	}
	bar.SetTotal(doneSoFar, true) // completes the bar even if the task finished short of its original total
	p.Wait()
	printRecord(label, rec)
	return nil
}
