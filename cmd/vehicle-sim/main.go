// Package main é o simulador de veículo usado como downstream do testbed.
//
// POST /command liga o ar-condicionado de um veículo (estado só em memória)
// e GET /status devolve quantos veículos já foram vistos. --latency atrasa
// cada comando para exercitar o timeout downstream do testbed.
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
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type simulator struct {
	mu      sync.Mutex
	climate map[string]bool
	latency time.Duration
	log     *slog.Logger
}

type commandRequest struct {
	Command   string `json:"command"`
	VehicleID string `json:"vehicle_id"`
}

type commandResponse struct {
	Status    string `json:"status"`
	VehicleID string `json:"vehicle_id"`
}

func newSimulator(latency time.Duration, log *slog.Logger) *simulator {
	return &simulator{climate: make(map[string]bool), latency: latency, log: log}
}

func (s *simulator) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

func (s *simulator) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.VehicleID == "" {
		req.VehicleID = "unknown"
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	resp := commandResponse{Status: "Unknown command", VehicleID: req.VehicleID}
	if req.Command == "START_CLIMATE" {
		s.mu.Lock()
		on := s.climate[req.VehicleID]
		s.climate[req.VehicleID] = true
		s.mu.Unlock()

		if on {
			resp.Status = "Climate was already ON"
			s.log.Debug("climate already on", "vehicle_id", req.VehicleID)
		} else {
			resp.Status = "Climate turned ON"
			s.log.Info("climate turned on", "vehicle_id", req.VehicleID)
		}
	}
	writeJSON(w, resp)
}

func (s *simulator) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.climate)
	s.mu.Unlock()
	writeJSON(w, map[string]int{"vehicle_count": n})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	var (
		addr    string
		latency time.Duration
	)
	cmd := &cobra.Command{
		Use:          "vehicle-sim",
		Short:        "Vehicle simulator used as the testbed downstream",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			sim := newSimulator(latency, log)

			srv := &http.Server{
				Addr:              addr,
				Handler:           sim.routes(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30*time.Second + latency,
				IdleTimeout:       90 * time.Second,
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info("vehicle simulator listening", "addr", addr, "latency", latency)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "listen", getenvDefault("LISTEN_ADDR", ":8081"), "Listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Delay added to every command")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
