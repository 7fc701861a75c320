package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/services"
)

var (
	translatorInstance *services.DocumentTranslator
	once               sync.Once
	initErr            error
)

func init() {
	// --- Set up structured logging ---
	gcp.SetupLogging(gcp.GetEnv("LOG_LEVEL", "info"))

	// Register the HTTP function with the framework.
	// "HandleTranslateDocument" is the entry point name we'll see in GCP.
	functions.HTTP("HandleTranslateDocument", handleTranslateDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// handleTranslateDocument is called by the queue workflow once per job.
func handleTranslateDocument(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients and pools.
	once.Do(func() {
		translatorInstance, initErr = services.NewDocumentTranslator(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: Document translator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.TranslateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "Bad Request: key is required", http.StatusBadRequest)
		return
	}

	// Delegate to the business logic.
	res, err := translatorInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		// Only retryable failures ask the workflow to try again.
		if kind, ok := apperrors.KindOf(err); ok && kind == apperrors.KindValidation {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !apperrors.IsRetryable(err) {
			http.Error(w, "Unprocessable Entity: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	// If successful, encode the response and send it back to the workflow.
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
