// Command roster-injector decodes Super Mega Baseball 4 league saves, lists
// their teams and players, and replaces one team with a team from another
// league while keeping the replaced team's identity.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"rosterinjector/internal/backup"
	"rosterinjector/internal/blob"
	"rosterinjector/internal/config"
	"rosterinjector/internal/core"
	"rosterinjector/internal/metrics"
	"rosterinjector/internal/roster"
	"rosterinjector/internal/savefile"
	"rosterinjector/pkg/domain"
)

var exitFunc = os.Exit

// Exit codes by error kind.
var exitCodes = map[string]int{
	"":           0,
	"internal":   1,
	"validation": 2,
	"not_found":  3,
	"format":     4,
	"integrity":  5,
	"io":         6,
}

func main() {
	exitFunc(run(os.Args, os.Stdout, os.Stderr))
}

func exitCode(err error) int {
	if code, ok := exitCodes[domain.Kind(err)]; ok {
		return code
	}
	return 1
}

func run(args []string, stdout, stderr io.Writer) int {
	st := &state{stdout: stdout, stderr: stderr}
	err := newApp(st).Run(args)
	if st.recorder != nil && st.cfg.Metrics.Textfile != "" {
		if werr := st.recorder.WriteTextfile(st.cfg.Metrics.Textfile); werr != nil {
			st.logger.Warn("could not write metrics textfile", "path", st.cfg.Metrics.Textfile, "error", werr)
		}
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "roster-injector: %v\n", err)
	}
	return exitCode(err)
}

// state carries what Before builds for the command actions.
type state struct {
	stdout, stderr io.Writer
	cfg            config.Config
	logger         *slog.Logger
	recorder       *metrics.Recorder
	svc            *core.Service
}

func (st *state) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}
	if v := c.String("save-dir"); v != "" {
		cfg.SaveDir = v
	}
	if v := c.String("work-dir"); v != "" {
		cfg.WorkDir = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	logger, err := cfg.Log.NewLogger(st.stderr)
	if err != nil {
		return err
	}
	store, err := blob.Open(c.Context, cfg.BlobConfig())
	if err != nil {
		return fmt.Errorf("open backup store: %w", err)
	}
	st.cfg, st.logger = cfg, logger
	st.recorder = metrics.New()
	st.svc = core.NewService(cfg.WorkDir,
		core.WithLogger(logger),
		core.WithMetricsRecorder(st.recorder),
		core.WithBackups(backup.NewService(store, backup.WithLogger(logger))),
	)
	return nil
}

func (st *state) saveDir() (string, error) {
	if st.cfg.SaveDir == "" {
		return "", domain.ValidationError{Field: "save-dir", Reason: "set --save-dir or ROSTER_INJECTOR_SAVE_DIR"}
	}
	return st.cfg.SaveDir, nil
}

func (st *state) print(v any) error {
	enc := json.NewEncoder(st.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// leagueDB resolves a league file stem to its decoded workspace database.
func (st *state) leagueDB(stem string) string {
	if filepath.Ext(stem) == savefile.DatabaseExt || filepath.Base(stem) != stem {
		return stem
	}
	return filepath.Join(st.cfg.WorkDir, stem+savefile.DatabaseExt)
}

func newApp(st *state) *cli.App {
	return &cli.App{
		Name:           "roster-injector",
		Usage:          "swap teams between Super Mega Baseball 4 leagues",
		Writer:         st.stdout,
		ErrWriter:      st.stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional .env file"},
			&cli.StringFlag{Name: "save-dir", Usage: "game save directory holding league*.sav"},
			&cli.StringFlag{Name: "work-dir", Usage: "directory decoded databases are written to"},
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error"},
		},
		Before: st.setup,
		Commands: []*cli.Command{
			decodeCommand(st),
			encodeCommand(st),
			leaguesCommand(st),
			playersCommand(st),
			playBallCommand(st),
			backupCommand(st),
		},
	}
}

func decodeCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "decode every league container into the work directory",
		Action: func(c *cli.Context) error {
			dir, err := st.saveDir()
			if err != nil {
				return err
			}
			paths, err := savefile.NewCodec(st.logger).DecodeDir(c.Context, dir, st.cfg.WorkDir)
			if err != nil {
				return err
			}
			return st.print(paths)
		},
	}
}

func encodeCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "encode a league database back into the save directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "league", Required: true, Usage: "league file stem or database path"},
		},
		Action: func(c *cli.Context) error {
			dir, err := st.saveDir()
			if err != nil {
				return err
			}
			path, err := savefile.NewCodec(st.logger).EncodeFile(c.Context, st.leagueDB(c.String("league")), dir)
			if err != nil {
				return err
			}
			return st.print(map[string]string{"save_path": path})
		},
	}
}

func leaguesCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "leagues",
		Usage: "decode the save directory and list importable leagues with their teams",
		Action: func(c *cli.Context) error {
			dir, err := st.saveDir()
			if err != nil {
				return err
			}
			leagues, err := st.svc.LoadLeagues(c.Context, dir)
			if err != nil {
				return err
			}
			return st.print(leagues)
		},
	}
}

func playersCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "players",
		Usage: "list a team's players, or compare them with a roster workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "league", Required: true, Usage: "league file stem or database path"},
			&cli.StringFlag{Name: "team", Required: true, Usage: "team GUID"},
			&cli.StringFlag{Name: "roster", Usage: "xlsx workbook with a Roster sheet"},
		},
		Action: func(c *cli.Context) error {
			db := st.leagueDB(c.String("league"))
			if path := c.String("roster"); path != "" {
				external, err := roster.LoadWorkbookFile(path)
				if err != nil {
					return err
				}
				cmp, err := st.svc.CompareRoster(c.Context, db, c.String("team"), external)
				if err != nil {
					return err
				}
				return st.print(cmp)
			}
			players, err := st.svc.LoadPlayers(c.Context, db, c.String("team"))
			if err != nil {
				return err
			}
			return st.print(players)
		},
	}
}

func playBallCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "play-ball",
		Usage: "replace a team with a team from another league and save",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target-league", Required: true, Usage: "league file stem receiving the team"},
			&cli.StringFlag{Name: "target-team", Required: true, Usage: "GUID of the team whose identity is kept"},
			&cli.StringFlag{Name: "source-league", Required: true, Usage: "league file stem donating the team"},
			&cli.StringFlag{Name: "source-team", Required: true, Usage: "GUID of the donor team"},
			&cli.StringFlag{Name: "roster", Usage: "xlsx workbook applied to the copied players"},
			&cli.BoolFlag{Name: "no-decode", Usage: "use the work directory as is instead of decoding the save directory first"},
		},
		Action: func(c *cli.Context) error {
			dir, err := st.saveDir()
			if err != nil {
				return err
			}
			if !c.Bool("no-decode") {
				if _, err := st.svc.LoadLeagues(c.Context, dir); err != nil {
					return err
				}
			}
			req := core.PlayBallRequest{
				SaveDir:    dir,
				TargetDB:   st.leagueDB(c.String("target-league")),
				TargetTeam: c.String("target-team"),
				SourceDB:   st.leagueDB(c.String("source-league")),
				SourceTeam: c.String("source-team"),
			}
			if path := c.String("roster"); path != "" {
				if req.Roster, err = roster.LoadWorkbookFile(path); err != nil {
					return err
				}
			}
			res, err := st.svc.PlayBall(c.Context, req)
			if err != nil {
				return err
			}
			return st.print(res)
		},
	}
}

func backupCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "manage league container backups",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list backups grouped by league, newest first",
				Action: func(c *cli.Context) error {
					groups, err := st.svc.ListBackups(c.Context)
					if err != nil {
						return err
					}
					return st.print(groups)
				},
			},
			{
				Name:  "create",
				Usage: "back up one league container",
				Flags: []cli.Flag{&cli.StringFlag{Name: "league", Required: true, Usage: "league file stem"}},
				Action: func(c *cli.Context) error {
					dir, err := st.saveDir()
					if err != nil {
						return err
					}
					info, err := st.svc.CreateBackup(c.Context, filepath.Join(dir, c.String("league")+savefile.SaveExt))
					if err != nil {
						return err
					}
					return st.print(info)
				},
			},
			{
				Name:  "restore",
				Usage: "restore a backup into the save directory",
				Flags: []cli.Flag{&cli.StringFlag{Name: "key", Required: true, Usage: "backup name from backup list"}},
				Action: func(c *cli.Context) error {
					dir, err := st.saveDir()
					if err != nil {
						return err
					}
					if _, _, ok := backup.ParseKey(c.String("key")); !ok {
						return domain.ValidationError{Field: "key", Reason: "not a backup name"}
					}
					path, err := st.svc.RestoreBackup(c.Context, c.String("key"), dir)
					if err != nil {
						return err
					}
					return st.print(map[string]string{"restored": path})
				},
			},
		},
	}
}
