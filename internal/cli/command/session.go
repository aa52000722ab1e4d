package command

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/arsnap-go/internal/cli/output"
	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/storage/capturestore"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Record and inspect capture sessions",
		Subcommands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Start capturing into a new session folder",
				ArgsUsage: "NAME",
				Action:    sessionStart,
			},
			{
				Name:   "stop",
				Usage:  "Stop the active capture and write its manifest",
				Action: sessionStop,
			},
			{
				Name:   "status",
				Usage:  "Show the recorder's capture status",
				Action: sessionStatus,
			},
			{
				Name:  "list",
				Usage: "List session folders under the document root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "root",
						Usage:   "Document root (default: <documents>/arsnap)",
						EnvVars: []string{"ARSNAP_STORAGE_ROOT"},
					},
				},
				Action: sessionList,
			},
			{
				Name:      "inspect",
				Usage:     "Show the records of a session manifest",
				ArgsUsage: "DIR|info.json",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Check that every record's image exists and decodes",
					},
				},
				Action: sessionInspect,
			},
		},
	}
}

// ============================================================================
// Capture control
// ============================================================================

func sessionStart(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("session name is required")
	}
	// Names may contain spaces; accept them unquoted.
	name := strings.Join(c.Args().Slice(), " ")

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := socketClient(c).Start(ctx, name)
	if err != nil {
		return fmt.Errorf("start %q: %w", name, err)
	}
	return render(c, st, newStatusView(st))
}

func sessionStop(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	var spinner *output.Spinner
	if !flags.Quiet && (flags.Output == output.FormatTable || flags.Output == output.FormatWide) {
		spinner = output.NewSpinner(stderr(c), "Stopping capture")
		spinner.Start()
	}

	res, err := socketClient(c).Stop(ctx)
	if spinner != nil {
		switch {
		case err != nil:
			spinner.Fail("stop failed")
		case res.Session == "":
			spinner.Success("nothing was capturing")
		case res.Error != "":
			spinner.Fail("manifest write failed")
		default:
			spinner.Success(fmt.Sprintf("%d records flushed", res.Records))
		}
	}
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if res.Session == "" {
		return nil
	}
	if err := render(c, res, res); err != nil {
		return err
	}
	if res.Error != "" {
		return cli.Exit("manifest for "+res.Session+" was not written: "+res.Error, 1)
	}
	return nil
}

func sessionStatus(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := statusReader(c).Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	return render(c, st, newStatusView(st))
}

// statusView is the table rendering of service.Status.
type statusView struct {
	State     string    `json:"state"`
	Session   string    `json:"session"`
	RunID     string    `json:"run_id" table:"wide"`
	Started   time.Time `json:"started"`
	Records   int       `json:"records"`
	Dropped   int       `json:"dropped"`
	Tracking  string    `json:"tracking"`
	LastFile  string    `json:"last_file" table:"wide"`
	LastFlush string    `json:"last_flush"`
}

func newStatusView(st service.Status) statusView {
	v := statusView{
		State:    string(st.State),
		Session:  st.Session,
		RunID:    st.RunID,
		Records:  st.Records,
		Dropped:  st.Dropped,
		Tracking: st.LastTracking,
		LastFile: st.LastFile,
	}
	if st.StartedAt > 0 {
		v.Started = time.UnixMilli(st.StartedAt).Local()
	}
	if f := st.LastFlush; f != nil {
		switch {
		case f.Error != "":
			v.LastFlush = fmt.Sprintf("%s: failed (%s)", f.Session, f.Error)
		case f.Written:
			v.LastFlush = fmt.Sprintf("%s: %d records", f.Session, f.Records)
		default:
			v.LastFlush = fmt.Sprintf("%s: no records", f.Session)
		}
	}
	return v
}

// ============================================================================
// Offline inspection
// ============================================================================

// sessionRow summarizes one session folder.
type sessionRow struct {
	Name     string    `json:"name"`
	Images   int       `json:"images"`
	Records  *int      `json:"records,omitempty"`
	Modified time.Time `json:"modified"`
	Path     string    `json:"path" table:"wide"`
}

func sessionList(c *cli.Context) error {
	root, err := capturestore.ResolveRoot(c.String("root"))
	if err != nil {
		return err
	}
	rows, err := listSessions(root)
	if err != nil {
		return err
	}
	format := ParseGlobalFlags(c).Output
	if len(rows) == 0 && format != output.FormatJSON && format != output.FormatYAML {
		fmt.Fprintf(stdout(c), "No sessions under %s\n", root)
		return nil
	}
	return render(c, rows, rows)
}

// listSessions scans root for session folders, newest first. A missing root
// has no sessions.
func listSessions(root string) ([]sessionRow, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return []sessionRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	rows := make([]sessionRow, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		row := sessionRow{Name: e.Name(), Path: dir}
		if info, err := e.Info(); err == nil {
			row.Modified = info.ModTime()
		}
		images, _ := filepath.Glob(filepath.Join(dir, "*"+capturestore.ImageExt))
		row.Images = len(images)
		if records, err := capturestore.ReadManifestFile(filepath.Join(dir, capturestore.ManifestName)); err == nil {
			n := len(records)
			row.Records = &n
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Modified.After(rows[j].Modified) })
	return rows, nil
}

// imageProblem describes a record whose image cannot be used.
type imageProblem struct {
	FileName string `json:"fileName"`
	Problem  string `json:"problem"`
}

func sessionInspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one session folder or manifest path is required")
	}
	path := c.Args().First()

	records, err := capturestore.ReadManifestFile(path)
	if err != nil {
		return err
	}

	if !c.Bool("verify") {
		return render(c, records, records)
	}

	dir := path
	if filepath.Base(path) == capturestore.ManifestName {
		dir = filepath.Dir(path)
	}

	flags := ParseGlobalFlags(c)
	var bar *output.ProgressBar
	if !flags.Quiet {
		bar = output.NewProgressBar(stderr(c), "Verifying")
		bar.SetTotal(int64(len(records)))
	}
	problems := verifyImages(dir, records, func() {
		if bar != nil {
			bar.Increment(1)
		}
	})
	if bar != nil {
		bar.Finish()
	}

	if len(problems) == 0 {
		if flags.Output == output.FormatJSON || flags.Output == output.FormatYAML {
			return render(c, problems, nil)
		}
		fmt.Fprintf(stdout(c), "All %d images present and readable\n", len(records))
		return nil
	}
	if err := render(c, problems, problems); err != nil {
		return err
	}
	return cli.Exit(fmt.Sprintf("%d of %d images missing or unreadable", len(problems), len(records)), 1)
}

// verifyImages checks that each record's image exists in dir and has a
// decodable header. step is called once per record.
func verifyImages(dir string, records []domain.SnapshotRecord, step func()) []imageProblem {
	problems := []imageProblem{}
	for _, rec := range records {
		if err := checkImage(filepath.Join(dir, rec.FileName)); err != nil {
			problems = append(problems, imageProblem{FileName: rec.FileName, Problem: err.Error()})
		}
		step()
	}
	return problems
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return errors.New("missing")
	}
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("undecodable: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return errors.New("empty image")
	}
	return nil
}
