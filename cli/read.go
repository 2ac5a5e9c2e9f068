package cli

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/dustwatch/dustwatch/module"
	"github.com/dustwatch/dustwatch/session"
)

// summaryEvery is how many readings are printed between two summaries.
const summaryEvery = 10

// ReadAction connects to the device given with --device, or to the first accessible device a
// module can handle, and prints readings until interrupted or the device goes away.
func ReadAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(rt.Close())
	}()

	target, err := rt.pickDevice(c.String(deviceFlag))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(rt.manager, rt.logger,
		session.WithRetryPolicy(rt.cfg.Retry.Policy()),
		session.WithBufferSize(rt.cfg.BufferSize),
		session.WithInspector(rt.inspector),
	)
	if err := sess.Select(ctx, target); err != nil {
		return err
	}

	out := c.App.Writer
	if ui := sess.UI(); ui != nil {
		printf(out, "%s", ui.Title(target.Path, "Connected"))
		printf(out, "%s", strings.Join(ui.Headers(), " | "))
	} else {
		printf(out, "%s: connected to %s", sess.Module().Name(), target.Path)
	}

	count := 0
	err = sess.Run(ctx, rt.cfg.PollInterval, func(r module.Reading, err error) {
		if err != nil {
			warningf(c.App.ErrWriter, "read from %s failed: %v", target.Path, err)
			return
		}
		count++
		printf(out, "%s", colorize(r.Severity(), r.DisplayString()))
		if count%summaryEvery == 0 {
			printSummary(out, count, sess.Stats())
		}
	})
	printf(out, "Stopped after %d reading(s)", count)
	return err
}

func printSummary(w io.Writer, count int, stats map[string]session.Stats) {
	printf(w, "\nReadings collected: %d", count)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Measurement", "Mean", "Std Dev", "Min", "Max"})
	for _, name := range session.MeasurementNames(stats) {
		st := stats[name]
		t.AppendRow(table.Row{name, fmtFloat(st.Mean), fmtFloat(st.StdDev), fmtFloat(st.Min), fmtFloat(st.Max)})
	}
	printf(w, "%s\n", t.Render())
}
