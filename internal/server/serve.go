package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolist/internal/auth"
	"github.com/idilsaglam/todolist/internal/config"
	"github.com/idilsaglam/todolist/internal/events"
	"github.com/idilsaglam/todolist/internal/kv"
	"github.com/idilsaglam/todolist/internal/store"
)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully. The store must share the bus so mutations reach SSE clients.
func Serve(cfg *config.Config, st *store.Store, bus *events.Bus) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appDir, err := config.AppDir()
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(appDir)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	defer authSvc.Close()
	if authSvc.IsOpenMode() {
		log.Warn("no api key configured, serving in open mode")
	}

	web, err := webHandler()
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}

	router := NewRouter(st, authSvc, bus, web)

	// External writes to the data file (say, a concurrent CLI add) reach
	// SSE clients through a reload.
	dataPath := kv.NewFile(cfg.DataDir).Path(store.CollectionKey)
	go watchData(ctx, dataPath, st.Reload)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("todolist listening", "addr", cfg.ListenAddr, "data", dataPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("server shutdown error", "err", err)
	}
	log.Info("shutdown complete")
	return nil
}
