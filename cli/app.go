// Package cli contains the dustwatch console front-end.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag = "config"
	debugFlag  = "debug"
	deviceFlag = "device"
	watchFlag  = "watch"
)

var app = &cli.App{
	Name:            "dustwatch",
	Usage:           "detect particulate matter sensors and read from them",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "modules",
			Usage:  "list the loaded sensor modules",
			Action: ModulesAction,
		},
		{
			Name:  "devices",
			Usage: "list serial devices with their permissions and matching module",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    watchFlag,
					Aliases: []string{"w"},
					Usage:   "keep listing as devices are plugged in or removed",
				},
			},
			Action: DevicesAction,
		},
		{
			Name:      "read",
			Usage:     "connect to a sensor and print its readings until interrupted",
			UsageText: "dustwatch read [--device PATH]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    deviceFlag,
					Aliases: []string{"d"},
					Usage:   "read from `PATH` instead of the first accessible matching device",
				},
			},
			Action: ReadAction,
		},
		{
			Name:   "config-schema",
			Usage:  "print the JSON schema of the configuration file",
			Action: ConfigSchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
