package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gravyprompts/gravyprompts/internal/api"
	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/config"
	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/importer"
	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/ratelimit"
	"github.com/gravyprompts/gravyprompts/internal/search"
	"github.com/gravyprompts/gravyprompts/internal/service"
	"github.com/gravyprompts/gravyprompts/internal/storage"
	"github.com/gravyprompts/gravyprompts/internal/validation"
)

// NewApp builds the root command
func NewApp(version string) *cli.Command {
	return &cli.Command{
		Name:  "gravyprompts",
		Usage: "Search and serve shared prompt templates",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Configuration file path",
				Value:   defaultConfigPath(),
				Sources: cli.EnvVars(config.EnvConfigPath),
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Template database path, overriding the config file",
				Sources: cli.EnvVars("GRAVYPROMPTS_DB"),
			},
			&cli.StringFlag{
				Name:    "user",
				Usage:   "Act as this user id (for --filter mine and private templates)",
				Sources: cli.EnvVars("GRAVYPROMPTS_USER"),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("debug") {
				log.SetGlobalDebug(true)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			SearchCommand(),
			ShowCommand(),
			TagsCommand(),
			ImportCommand(),
			ConfigCommand(),
			VersionCommand(version),
		},
	}
}

func defaultConfigPath() string {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

// loadConfig reads the config named by --config and applies --db
func loadConfig(c *cli.Command) (*config.Config, error) {
	path := c.String("config")
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if cfg.Debug {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		DefaultLimit:      cfg.Search.DefaultLimit,
		MaxLimit:          cfg.Search.MaxLimit,
		MaxFetchesPerPage: cfg.Search.MaxFetchesPerPage,
		FetchTimeout:      cfg.Search.FetchTimeout.Duration,
		PreviewLength:     cfg.Search.PreviewLength,
	}
}

func limits(cfg *config.Config) validation.Limits {
	return validation.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit}
}

// withService opens the configured store and runs fn against it
func withService(ctx context.Context, c *cli.Command, fn func(*config.Config, *service.Service) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo, err := storage.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	svc := service.NewService(repo, searchOptions(cfg))
	defer func() {
		if err := svc.Close(); err != nil {
			log.ForService("cli").Warnf("failed to close storage: %v", err)
		}
	}()

	return report(c, fn(cfg, svc))
}

// report turns AppErrors into terminal-friendly messages
func report(c *cli.Command, err error) error {
	if err == nil || !errors.IsAppError(err) {
		return err
	}
	return errors.NewCLIErrorHandler(c.Bool("debug")).HandleError(err)
}

func caller(c *cli.Command) auth.Identity {
	return auth.Identity{UserID: c.String("user")}
}

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on, overriding the config file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withService(ctx, c, func(cfg *config.Config, svc *service.Service) error {
				if port := c.Int("port"); port > 0 {
					cfg.Server.Port = port
				}
				return serve(ctx, cfg, svc)
			})
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	logger := log.ForService("serve")
	srv := api.NewAPIServer(svc, api.Options{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		CORSOrigin:   cfg.Server.CORSOrigin,
		Limits:       limits(cfg),
		Resolver:     auth.NewHeaderResolver(cfg.Server.UserHeader),
		Limiter:      ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return <-errCh
	}
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search templates",
		ArgsUsage: "[query...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Only templates with this tag"},
			&cli.StringFlag{Name: "filter", Usage: "public, mine, popular or all", Value: string(models.FilterPublic)},
			&cli.StringFlag{Name: "sort-by", Usage: "createdAt, viewCount or useCount"},
			&cli.StringFlag{Name: "sort-order", Usage: "asc or desc"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of results"},
			&cli.StringFlag{Name: "next", Usage: "Continuation token from a previous page"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "table, json or ids", Value: FormatTable},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withService(ctx, c, func(cfg *config.Config, svc *service.Service) error {
				data := map[string]interface{}{
					"search":    strings.Join(c.Args().Slice(), " "),
					"tag":       c.String("tag"),
					"filter":    c.String("filter"),
					"sortBy":    c.String("sort-by"),
					"sortOrder": c.String("sort-order"),
					"nextToken": c.String("next"),
				}
				if c.IsSet("limit") {
					data["limit"] = c.Int("limit")
				}
				req, err := svc.Validator().ParseSearchRequest(data, limits(cfg))
				if err != nil {
					return err
				}
				return NewCLI(svc, c.Root().Writer, caller(c)).Search(ctx, req, c.String("format"))
			})
		},
	}
}

// ShowCommand creates the show command
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a template",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "markdown, text, messages, source or json", Value: "markdown"},
			&cli.StringSliceFlag{Name: "var", Usage: "Fill a [[variable]] for text, messages and --copy, as name=value"},
			&cli.IntFlag{Name: "width", Usage: "Word wrap width", Value: 80},
			&cli.BoolFlag{Name: "copy", Aliases: []string{"c"}, Usage: "Copy the filled-in text to the clipboard"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return fmt.Errorf("show requires exactly one template id")
			}
			vars, err := ParseVars(c.StringSlice("var"))
			if err != nil {
				return err
			}
			return withService(ctx, c, func(cfg *config.Config, svc *service.Service) error {
				return NewCLI(svc, c.Root().Writer, caller(c)).Show(ctx, c.Args().First(), c.String("format"), vars, c.Int("width"), c.Bool("copy"))
			})
		},
	}
}

// TagsCommand creates the tags command
func TagsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tags",
		Usage:     "List tags, optionally fuzzy matching a query",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of tags"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "table, json or ids", Value: FormatTable},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withService(ctx, c, func(cfg *config.Config, svc *service.Service) error {
				data := map[string]interface{}{"q": c.Args().First()}
				if c.IsSet("limit") {
					data["limit"] = c.Int("limit")
				}
				q, limit, err := svc.Validator().ParseTagQuery(data, limits(cfg))
				if err != nil {
					return err
				}
				return NewCLI(svc, c.Root().Writer, caller(c)).Tags(ctx, q, limit, c.String("format"))
			})
		},
	}
}

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import seed templates from CSV, JSON or markdown files",
		ArgsUsage: "<path>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be imported without saving"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Tag added to every imported template"},
			&cli.StringFlag{Name: "owner", Usage: "Owner for templates that name none"},
			&cli.StringFlag{Name: "visibility", Usage: "Visibility for templates that name none", Value: string(models.VisibilityPublic)},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "text or json", Value: FormatText},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return fmt.Errorf("import requires at least one file or directory")
			}
			visibility := models.Visibility(c.String("visibility"))
			if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
				return fmt.Errorf("visibility must be public or private")
			}
			return withService(ctx, c, func(cfg *config.Config, svc *service.Service) error {
				return NewCLI(svc, c.Root().Writer, caller(c)).Import(ctx, importer.ImportOptions{
					Paths:      c.Args().Slice(),
					Tags:       c.StringSlice("tag"),
					OwnerID:    c.String("owner"),
					Visibility: visibility,
					DryRun:     c.Bool("dry-run"),
				}, c.String("format"))
			})
		},
	}
}

// ConfigCommand creates the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a commented configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.String("config")
					if path == "" {
						return fmt.Errorf("no config path; pass --config")
					}
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					}
					cfg, err := config.Default()
					if err != nil {
						return err
					}
					if err := cfg.SaveTemplate(path); err != nil {
						return fmt.Errorf("writing config: %w", err)
					}
					fmt.Fprintf(c.Root().Writer, "Configuration written to %s\n", path)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return cfg.Write(c.Root().Writer)
				},
			},
		},
	}
}

// VersionCommand creates the version command
func VersionCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Fprintf(c.Root().Writer, "gravyprompts %s\n", version)
			return nil
		},
	}
}
