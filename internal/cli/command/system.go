package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/arsnap-go/internal/cli/connection"
	"github.com/yndnr/arsnap-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Recorder health and maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the recorder is up and can write captures",
				Action: systemHealth,
			},
			{
				Name:   "reload",
				Usage:  "Ask the recorder to re-read its configuration",
				Action: systemReload,
			},
			{
				Name:   "version",
				Usage:  "Show arsnap-cli build information",
				Action: systemVersion,
			},
		},
	}
}

// healthReport is printed by `system health`.
type healthReport struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
	State    string `json:"state,omitempty"`
}

func systemHealth(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	if flags.HTTP != "" {
		client := connection.NewHTTPClient(flags.HTTP)
		report := healthReport{Endpoint: client.BaseURL(), Status: "ready"}
		if err := client.Ready(ctx); err != nil {
			return fmt.Errorf("recorder not ready: %w", err)
		}
		return render(c, report, report)
	}

	client := socketClient(c)
	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("recorder unreachable: %w", err)
	}
	report := healthReport{Endpoint: client.Path(), Status: "reachable", State: string(st.State)}
	return render(c, report, report)
}

func systemReload(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := socketClient(c).Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	fmt.Fprintln(stdout(c), "Configuration reloaded")
	return nil
}

func systemVersion(c *cli.Context) error {
	info := buildinfo.Get()
	return render(c, info, info)
}
