package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
)

// ModulesAction lists the modules that were loaded.
func ModulesAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer func() {
		goutils.UncheckedError(rt.Close())
	}()

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Version", "Source", "Description"})
	for _, info := range rt.manager.Modules() {
		t.AppendRow(table.Row{info.Name, info.Version, info.Path, info.Description})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}
