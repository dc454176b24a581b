// Package api serves a read-only HTTP view of a running simulation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apidispatch "github.com/kilianp07/acodispatch/api/dispatch"
	"github.com/kilianp07/acodispatch/api/vehicles"
	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/infra/logger"
)

// Config holds the listen address and the optional bearer token protecting
// the replan journal.
type Config struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// Enabled reports whether the API is served.
func (c Config) Enabled() bool { return c.Addr != "" }

// NewMux mounts the handlers for sched. store may be nil.
func NewMux(sched *dispatch.Scheduler, store journal.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/vehicles", vehicles.NewStatusHandler(sched))
	mux.Handle("/api/vehicles/", vehicles.NewDetailHandler(sched))
	mux.HandleFunc("/api/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sched.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sched.Report()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	if store != nil {
		mux.Handle("/api/replans", apidispatch.NewJournalHandler(store, token))
	}
	return mux
}

// Serve runs the API on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("api-server")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
