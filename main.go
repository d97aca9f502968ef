package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/councilvote/aitext"
	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/bot"
	"github.com/danielhkuo/councilvote/cliparse"
	"github.com/danielhkuo/councilvote/db"
	"github.com/danielhkuo/councilvote/middleware"
	"github.com/danielhkuo/councilvote/report"
	"github.com/danielhkuo/councilvote/router"
	"github.com/danielhkuo/councilvote/session"
	"github.com/danielhkuo/councilvote/store"
	"github.com/danielhkuo/councilvote/store/memory"
	"github.com/danielhkuo/councilvote/store/sqlstore"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "councilvote",
		Usage: "Council meeting voting bot and API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log at debug level"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			sessionsCommand(),
			statsCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Telegram bot and the HTTP API",
		Flags: append(cliparse.Flags(),
			&cli.BoolFlag{Name: "no-bot", Usage: "serve the HTTP API only"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := cliparse.FromCommand(cmd)
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, cmd.Bool("no-bot"))
		},
	}
}

func runServe(ctx context.Context, cfg cliparse.Config, noBot bool) error {
	if !noBot && cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN required (or pass --no-bot)")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []session.Option{
		session.WithProposerGate(cfg.RequireProposer),
	}
	var tg *bot.Telegram
	if !noBot {
		tg, err = bot.NewTelegram(cfg.TelegramToken, slog.Default())
		if err != nil {
			return err
		}
		opts = append(opts, session.WithNotifier(bot.NotifierFor(tg)))
	}

	ctrl := session.NewController(st, opts...)
	reports := report.NewCompiler(ctrl, slog.Default())

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           middleware.CORS(router.NewRouter(ctrl, reports, cfg)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if tg != nil {
		b := bot.New(bot.Deps{
			Controller: ctrl,
			Registry:   session.NewRegistry(ctrl),
			Reports:    reports,
			AI: aitext.New(aitext.Config{
				APIKey: cfg.AIAPIKey,
				Model:  cfg.AIModel,
				URL:    cfg.AIURL,
			}),
			Sender:       tg,
			AdminKeySalt: cfg.AdminKeySalt,
			Logger:       slog.Default(),
		})
		g.Go(func() error {
			return tg.Run(ctx, b)
		})
	}

	return g.Wait()
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, cfg cliparse.Config) (store.Store, func(), error) {
	if cfg.DatabaseType == cliparse.DatabaseMemory {
		slog.Warn("using in-memory store; sessions are lost on restart")
		return memory.New(), func() {}, nil
	}

	gdb, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, gdb, cfg.DatabaseType); err != nil {
		db.Close(gdb)
		return nil, nil, err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	return sqlstore.New(gdb), func() {
		if err := db.Close(gdb); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and print the schema version",
		Flags: cliparse.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := cliparse.FromCommand(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseType == cliparse.DatabaseMemory {
				fmt.Println("memory store has no schema")
				return nil
			}

			gdb, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := db.Migrate(ctx, gdb, cfg.DatabaseType); err != nil {
				return err
			}
			v, err := db.Version(ctx, gdb, cfg.DatabaseType)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d\n", v)
			return nil
		},
	}
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect and clean up sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the most recent sessions",
				Flags: append(cliparse.Flags(),
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withController(ctx, c, func(cfg cliparse.Config, ctrl *session.Controller) error {
						list, err := ctrl.RecentSessions(ctx, c.Int("limit"))
						if err != nil {
							return err
						}
						if c.Bool("json") {
							return printJSON(list)
						}
						tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
						fmt.Fprintln(tw, "CODE\tNAME\tPHASE\tACTIVE\tADMIN\tCREATED\tADMIN KEY")
						for _, s := range list {
							fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%d\t%s\t%s\n",
								s.Code, s.Name, s.Phase, s.Active, s.AdminID,
								s.CreatedAt.Format(time.DateTime), auth.GenerateAdminKey(s.Code, cfg.AdminKeySalt))
						}
						return tw.Flush()
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a session with its agenda, votes and participants",
				ArgsUsage: "<code>",
				Flags:     cliparse.Flags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					code, err := auth.ParseSessionCode(c.Args().First())
					if err != nil {
						return err
					}
					return withController(ctx, c, func(_ cliparse.Config, ctrl *session.Controller) error {
						if err := ctrl.DeleteSession(ctx, code); err != nil {
							return err
						}
						fmt.Printf("deleted session %d\n", code)
						return nil
					})
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show participation statistics for a Telegram user",
		ArgsUsage: "<user-id>",
		Flags:     append(cliparse.Flags(), &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}),
		Action: func(ctx context.Context, c *cli.Command) error {
			userID, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", c.Args().First())
			}
			return withController(ctx, c, func(_ cliparse.Config, ctrl *session.Controller) error {
				stats, err := ctrl.UserStats(ctx, userID)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(stats)
				}
				fmt.Printf("user %d\nname: %s\nsessions joined: %d\nsessions created: %d\n",
					stats.UserID, stats.Name, stats.ParticipationCount, stats.AdminCount)
				return nil
			})
		},
	}
}

// withController opens the configured store for a one-shot command.
func withController(ctx context.Context, c *cli.Command, fn func(cliparse.Config, *session.Controller) error) error {
	cfg, err := cliparse.FromCommand(c)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(cfg, session.NewController(st))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
