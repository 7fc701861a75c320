package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/services"
)

var (
	dispatcherInstance *services.PendingDispatcher
	once               sync.Once
	initErr            error
)

func init() {
	// --- Set up structured logging ---
	gcp.SetupLogging(gcp.GetEnv("LOG_LEVEL", "info"))

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("DispatchPendingDocument", dispatchPendingDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// dispatchPendingDocument fires on every object finalized in the documents bucket.
func dispatchPendingDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		dispatcherInstance, initErr = services.NewPendingDispatcher(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	// Unmarshal the event's data payload into our specific struct.
	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning an error marks the invocation as failed so the event is redelivered.
	return dispatcherInstance.Process(ctx, gcsEvent)
}
