package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/w40k-roster/internal/api"
	"github.com/pefman/w40k-roster/internal/config"
	"github.com/pefman/w40k-roster/internal/logging"
	"github.com/pefman/w40k-roster/internal/session"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New("api", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Server, log *zap.Logger) error {
	persist, closePersist, err := openPersister(cfg)
	if err != nil {
		return err
	}
	defer closePersist()

	srv := api.NewServer(session.NewStore(persist, log.Named("session")), log)

	// The index loads in the background; session imports answer 503 until
	// it is published.
	go func() {
		start := time.Now()
		idx, err := wahapedia.Load(cfg.WahapediaDir)
		if err != nil {
			log.Error("load reference data", zap.String("dir", cfg.WahapediaDir), zap.Error(err))
			return
		}
		srv.SetIndex(idx)
		sum := idx.Summary()
		log.Info("reference data loaded",
			zap.String("dir", cfg.WahapediaDir),
			zap.String("last_update", sum.LastUpdate),
			zap.Int("factions", sum.Factions),
			zap.Int("datasheets", sum.Datasheets),
			zap.Duration("took", time.Since(start)))
	}()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("W40K roster API listening", zap.String("addr", httpSrv.Addr))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// openPersister picks the session persister from the configuration. With
// neither SESSION_DB nor SESSION_DIR set, sessions live in memory only.
func openPersister(cfg config.Server) (session.Persister, func(), error) {
	switch {
	case cfg.SessionDB != "":
		db, err := session.OpenSQLite(cfg.SessionDB)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case cfg.SessionDir != "":
		dir, err := session.NewDirPersister(cfg.SessionDir)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
