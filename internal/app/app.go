package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Promise30/promise-auth/internal/config"
	"github.com/Promise30/promise-auth/internal/mail"
)

type App struct {
	httpServer *http.Server
	mailQueue  *mail.Queue
	workerDone chan struct{}
	cleanup    func() error
	log        *slog.Logger
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	router, mailQueue, workerDone, cleanup, err := setupHTTP(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	return &App{
		httpServer: server,
		mailQueue:  mailQueue,
		workerDone: workerDone,
		cleanup:    cleanup,
		log:        log,
	}, nil
}

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then lets the mail worker drain any
// queued confirmations before closing the infrastructure connections. The
// drain is bounded by ctx; undelivered mail is dropped at the deadline.
// Every stage runs even when an earlier one fails, so the db and redis
// connections are always released; the errors are joined.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)

	a.mailQueue.Close()
	select {
	case <-a.workerDone:
	case <-ctx.Done():
		a.log.Warn("mail worker did not drain before deadline")
	}

	if a.cleanup != nil {
		err = errors.Join(err, a.cleanup())
	}
	return err
}
