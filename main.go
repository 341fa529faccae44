package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/cli"

	"taskboard/app/components"
	"taskboard/app/config"
	"taskboard/app/controllers"
	"taskboard/app/forms"
	"taskboard/app/routes"
	"taskboard/app/seed"
	"taskboard/app/services"
	"taskboard/app/store"
)

func main() {
	app := cli.NewApp()
	app.Name = "taskboard"
	app.Usage = "projects, sections and tasks on a hosted table service"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "optional YAML config file",
			EnvVar: "TASKBOARD_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "run the web server",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "seed",
					Usage: "load a YAML fixture before serving, handy with the memory backend",
				},
			},
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "create tables or constraints on the configured backend",
			Action: migrate,
		},
		{
			Name:      "seed",
			Usage:     "load projects, sections and tasks from a YAML fixture",
			ArgsUsage: "<file.yaml>",
			Action:    seedFixture,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "taskboard:", err)
		os.Exit(1)
	}
}

type instance struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Backend
	hooks  *services.Hooks
}

func (rt *instance) close() error {
	return rt.store.Close(context.Background())
}

func setup(ctx context.Context, c *cli.Context) (*instance, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	backend, err := config.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("backend ready", "backend", cfg.Backend)
	return &instance{
		cfg:    cfg,
		logger: logger,
		store:  backend,
		hooks:  services.NewHooks(backend, logger, services.WithTTL(cfg.CacheTTL)),
	}, nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, c)
	if err != nil {
		return err
	}
	defer rt.close()

	policy, ok := components.ParseTogglePolicy(rt.cfg.TogglePolicy)
	if !ok {
		return fmt.Errorf("unknown toggle policy %q", rt.cfg.TogglePolicy)
	}
	if path := c.String("seed"); path != "" {
		if err := applyFixture(ctx, rt, path); err != nil {
			return err
		}
	}
	deps := controllers.Deps{
		Hooks:  rt.hooks,
		Clock:  forms.DefaultClock,
		Policy: policy,
		Logger: rt.logger,
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, controllers.NewBoardController(deps), controllers.NewAPIController(deps), rt.logger)

	srv := &http.Server{
		Addr:              rt.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		rt.logger.Info("server is running", "addr", "http://"+rt.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(c *cli.Context) error {
	ctx := context.Background()
	rt, err := setup(ctx, c)
	if err != nil {
		return err
	}
	defer rt.close()

	m, ok := rt.store.(config.Migrator)
	if !ok {
		rt.logger.Info("backend has no schema to migrate", "backend", rt.cfg.Backend)
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.logger.Info("migration complete", "backend", rt.cfg.Backend)
	return nil
}

func seedFixture(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("seed needs a fixture file", 2)
	}

	ctx := context.Background()
	rt, err := setup(ctx, c)
	if err != nil {
		return err
	}
	defer rt.close()
	return applyFixture(ctx, rt, path)
}

func applyFixture(ctx context.Context, rt *instance, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fixture, err := seed.Load(file)
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, rt.hooks, forms.DefaultClock, fixture)
	if err != nil {
		return err
	}
	rt.logger.Info("seed complete", "file", path, "projects", res.Projects, "sections", res.Sections, "tasks", res.Tasks)
	return nil
}
