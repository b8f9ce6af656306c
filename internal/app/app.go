package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mitchellrust/Hubletix-sub002/cmd/migrate"
	"github.com/mitchellrust/Hubletix-sub002/internal/cache"
	"github.com/mitchellrust/Hubletix-sub002/internal/config"
	"github.com/mitchellrust/Hubletix-sub002/internal/processor"
	"github.com/mitchellrust/Hubletix-sub002/internal/queue"
	"github.com/mitchellrust/Hubletix-sub002/internal/r2"
	"github.com/mitchellrust/Hubletix-sub002/internal/redisholder"
	"github.com/mitchellrust/Hubletix-sub002/internal/redismanager"
	"github.com/mitchellrust/Hubletix-sub002/internal/repository/storage"
	"github.com/mitchellrust/Hubletix-sub002/internal/transport/handler"
	"github.com/mitchellrust/Hubletix-sub002/internal/transport/router"
	use_case "github.com/mitchellrust/Hubletix-sub002/internal/use-case"
)

type App struct {
	HttpServer *http.Server
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// The invocation audit is optional; the pipeline runs without postgres.
	var audit queue.InvocationRecorder
	if cfg.Database.DSN != "" {
		if err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations); err != nil {
			return nil, err
		}

		repo, err := storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		audit = repo
	}

	holder, err := redisholder.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rc := holder.Get()
	resultTTL := time.Duration(cfg.Pipeline.ResultTTLSecs) * time.Second
	resultCache := cache.NewCache("hubletix:hero:results", resultTTL, rc)

	r2Storage, err := r2.NewStorage(ctx, &cfg.R2)
	if err != nil {
		return nil, err
	}

	enc := processor.NewVariantEncoder()
	orch := use_case.New(r2Storage, enc, cfg.Pipeline.Variants, cfg.Pipeline.Concurrency)

	evHandler := queue.NewHandler(orch, resultCache, audit)
	producer := queue.Init(ctx, rc, cfg.Worker, evHandler)

	dlq := redismanager.NewManager(rc, cfg.Worker.Stream, cfg.Worker.DeadStream, cfg.Worker.MaxLen)

	h := handler.New(producer, evHandler, resultCache, dlq, cfg)
	r := router.NewRouter(h)

	a.HttpServer = &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return a, nil
}

// Run serves HTTP until ctx is canceled, then drains and closes.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", a.HttpServer.Addr)
		errCh <- a.HttpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down: waiting for in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := a.HttpServer.Shutdown(shutdownCtx)
	for _, closeFn := range a.closers {
		closeFn()
	}
	return err
}
