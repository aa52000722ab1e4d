package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/arsnap-go/internal/cli/connection"
	"github.com/yndnr/arsnap-go/internal/cli/output"
	"github.com/yndnr/arsnap-go/internal/infra/buildinfo"
	"github.com/yndnr/arsnap-go/internal/recorder/config"
)

// DefaultTimeout bounds a single command round trip.
const DefaultTimeout = 30 * time.Second

const socketClientKey = "socketClient"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "arsnap-cli",
		Usage:   "Control and inspect the arsnap capture recorder",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			SystemCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
		After: func(c *cli.Context) error {
			if client, ok := c.App.Metadata[socketClientKey].(*connection.SocketClient); ok {
				return client.Close()
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"S"},
			Usage:   "Recorder control socket",
			EnvVars: []string{"ARSNAP_SOCKET"},
			Value:   config.DefaultSocketPath(),
		},
		&cli.StringFlag{
			Name:    "http",
			Usage:   "Recorder metrics listener (e.g. 127.0.0.1:9464) for read-only queries",
			EnvVars: []string{"ARSNAP_HTTP"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, wide, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress spinners and progress bars",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Socket  string
	HTTP    string
	Output  output.Format
	Timeout time.Duration
	Quiet   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		format = output.FormatTable
	}
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GlobalFlags{
		Socket:  c.String("socket"),
		HTTP:    c.String("http"),
		Output:  format,
		Timeout: timeout,
		Quiet:   c.Bool("quiet"),
	}
}

// socketClient returns the control socket client, creating it on first use.
func socketClient(c *cli.Context) *connection.SocketClient {
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	if client, ok := c.App.Metadata[socketClientKey].(*connection.SocketClient); ok {
		return client
	}
	client := connection.NewSocketClient(ParseGlobalFlags(c).Socket)
	c.App.Metadata[socketClientKey] = client
	return client
}

// statusReader prefers the metrics listener when --http is set.
func statusReader(c *cli.Context) connection.StatusReader {
	if addr := ParseGlobalFlags(c).HTTP; addr != "" {
		return connection.NewHTTPClient(addr)
	}
	return socketClient(c)
}

// requestContext bounds a command by --timeout.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, ParseGlobalFlags(c).Timeout)
}

func stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// render prints raw as JSON/YAML, or view as a table.
func render(c *cli.Context, raw, view any) error {
	format := ParseGlobalFlags(c).Output
	if format == output.FormatJSON || format == output.FormatYAML {
		return output.NewFormatter(format).Format(stdout(c), raw)
	}
	return output.NewFormatter(format).Format(stdout(c), view)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
