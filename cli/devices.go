package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bep/debounce"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/dustwatch/dustwatch/device"
)

const refreshDelay = 300 * time.Millisecond

// DevicesAction lists candidate devices. With --watch it lists them again on every hotplug
// event until interrupted.
func DevicesAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(rt.Close())
	}()

	printDevices(c.App.Writer, rt.scan())
	if !c.Bool(watchFlag) {
		return nil
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := device.NewWatcher(rt.discoverer.Dir, rt.discoverer.Patterns, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(watcher.Close())
	}()

	// Plugging a device in creates several nodes at once; list once they settled.
	var mu sync.Mutex
	refresh := debounce.New(refreshDelay)
	defer refresh(func() {})

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			verb := "removed"
			if ev.Added {
				verb = "added"
			}
			mu.Lock()
			printf(c.App.Writer, "\n%s %s", ev.Path, verb)
			mu.Unlock()
			refresh(func() {
				mu.Lock()
				defer mu.Unlock()
				printDevices(c.App.Writer, rt.scan())
			})
		}
	}
}

func printDevices(w io.Writer, rows []deviceRow) {
	if len(rows) == 0 {
		warningf(w, "no serial devices found")
		return
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Port", "Description", "Permissions", "Owner", "Status", "Module", "Score"})
	for _, row := range rows {
		owner, mod, score := "-", "-", "-"
		if row.perms.Exists {
			owner = fmt.Sprintf("%s:%s", row.perms.Owner, row.perms.Group)
		}
		if row.module != "" {
			mod = row.module
			score = fmt.Sprintf("%.1f", row.score)
		}
		desc := row.desc.Description
		if desc == "" {
			desc = "-"
		}
		perms := "-"
		if row.perms.Exists {
			perms = row.perms.PermissionString()
		}
		t.AppendRow(table.Row{
			row.desc.Path,
			desc,
			perms,
			owner,
			statusColor(row.perms.Status(), row.desc.Accessible),
			mod,
			score,
		})
	}
	printf(w, "%s", t.Render())

	for _, row := range rows {
		if row.perms.Exists && !row.desc.Accessible && row.perms.Diagnostic != "" {
			warningf(w, "%s", row.perms.Diagnostic)
		}
	}
}
