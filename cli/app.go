// Package cli contains the planframe command line tool.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig   = "config"
	flagScenario = "scenario"
	flagCycles   = "cycles"
	flagDebug    = "debug"
	flagLogFile  = "log-file"
	flagTable    = "table"
)

var app = &cli.App{
	Name:            "planframe",
	Usage:           "assemble and inspect planning frames",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "replay a scenario through a number of planning cycles",
			UsageText: "planframe run --scenario <scenario.json> [--config <planner.json>] [--cycles <n>] [--log-file <planframe.log>] [--table]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagScenario,
					Aliases:  []string{"s"},
					Usage:    "read the lanes, route, pose and predictions to replay from `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagConfig,
					Aliases: []string{"c"},
					Usage:   "load planner configuration from `FILE`",
				},
				&cli.IntFlag{
					Name:  flagCycles,
					Usage: "number of planning cycles to run",
					Value: 10,
				},
				&cli.StringFlag{
					Name:  flagLogFile,
					Usage: "also write logs to `FILE`, rotated once it grows past 100 MB",
				},
				&cli.BoolFlag{
					Name:  flagTable,
					Usage: "print a table of the frames left in history",
				},
			},
			Action: RunAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the planner configuration",
			Action: SchemaAction,
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

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
