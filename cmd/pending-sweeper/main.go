package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/services"
)

var (
	sweeperInstance *services.PendingSweeper
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	gcp.SetupLogging(gcp.GetEnv("LOG_LEVEL", "info"))

	functions.HTTP("HandleSweepPending", handleSweepPending)
}

// main is required by the Go Functions Framework.
func main() {}

// handleSweepPending is invoked by Cloud Scheduler or by hand. An empty body
// sweeps every market.
func handleSweepPending(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		sweeperInstance, initErr = services.NewPendingSweeper(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Pending sweeper initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.SweepPendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := sweeperInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, "Internal Server Error: sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
