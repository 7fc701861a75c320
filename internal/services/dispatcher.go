package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/google/uuid"

	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
)

// PendingDispatcher turns pending documents into queued translation jobs.
type PendingDispatcher struct {
	jobs    JobRegistry
	queue   JobQueue
	config  DispatcherConfig
	closers []func() error
}

// NewPendingDispatcher creates a dispatcher wired to Firestore and Cloud Workflows.
func NewPendingDispatcher(ctx context.Context) (*PendingDispatcher, error) {
	config, err := loadDispatcherConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newPendingDispatcher(ctx, config)
}

func newPendingDispatcher(ctx context.Context, config *DispatcherConfig) (*PendingDispatcher, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	tracker, err := gcp.NewJobTracker(firestoreClient, config.FirestoreCollection)
	if err != nil {
		return nil, err
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	queue, err := gcp.NewWorkflowQueue(executionsClient, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
	if err != nil {
		return nil, err
	}

	d := NewPendingDispatcherWith(*config, tracker, queue)
	d.closers = []func() error{queue.Close, firestoreClient.Close}
	slog.Info("Pending dispatcher initialized.", "bucket", config.DocumentsBucket, "workflowId", config.WorkflowID)
	return d, nil
}

// NewPendingDispatcherWith assembles a dispatcher from explicit collaborators.
func NewPendingDispatcherWith(config DispatcherConfig, jobs JobRegistry, queue JobQueue) *PendingDispatcher {
	if config.Lifecycle == (models.Lifecycle{}) {
		config.Lifecycle = models.DefaultLifecycle()
	}
	config.Lifecycle = config.Lifecycle.Normalize()
	return &PendingDispatcher{jobs: jobs, queue: queue, config: config}
}

// Close releases the clients owned by the dispatcher.
func (d *PendingDispatcher) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Process handles an object-finalized event. Objects outside the pending area
// are ignored; duplicate deliveries of the same generation are dropped.
func (d *PendingDispatcher) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name, "generation", e.Generation)

	if d.config.DocumentsBucket != "" && e.Bucket != d.config.DocumentsBucket {
		logCtx.Info("Object is not in the documents bucket. Skipping.")
		return nil
	}
	loc, err := d.config.Lifecycle.Parse(e.Name)
	if err != nil || loc.Area != d.config.Lifecycle.Pending {
		logCtx.Debug("Object is not a pending document. Skipping.")
		return nil
	}

	_, err = d.Dispatch(ctx, logCtx, loc, e.Generation, false)
	return err
}

// Dispatch registers a job for loc and enqueues it. With force set, a fresh
// job is created even if this generation was dispatched before. It reports
// whether a job was enqueued.
func (d *PendingDispatcher) Dispatch(ctx context.Context, logCtx *slog.Logger, loc models.Locator, generation string, force bool) (bool, error) {
	dedupKey := generation
	if force {
		dedupKey = generation + "#" + uuid.NewString()
	}
	jobID := models.JobID(loc.Key(), dedupKey)
	logCtx = logCtx.With("jobId", jobID, "market", loc.Market)

	created, err := d.jobs.Register(ctx, jobID, models.TranslationJob{
		SourceKey:  loc.Key(),
		Generation: generation,
		Market:     loc.Market,
		Status:     models.StatusQueued,
	})
	if err != nil {
		logCtx.Error("Failed to register job.", "error", err)
		return false, err
	}
	if !created {
		logCtx.Info("Duplicate job detected. Skipping.")
		return false, nil
	}

	executionID, err := d.queue.Enqueue(ctx, models.TranslateDocumentRequest{
		JobID:  jobID,
		Key:    loc.Key(),
		Market: loc.Market,
	})
	if err != nil {
		logCtx.Error("Failed to enqueue job.", "error", err)
		if relErr := d.jobs.Release(ctx, jobID); relErr != nil {
			logCtx.Error("CRITICAL: Failed to release job after an enqueue error. Redelivery will be dropped.", "releaseError", relErr)
		}
		return false, err
	}
	if err := d.jobs.AttachExecution(ctx, jobID, executionID); err != nil {
		logCtx.Warn("Failed to attach execution to job.", "executionId", executionID, "error", err)
	}
	logCtx.Info("Job dispatched.", "executionId", executionID)
	return true, nil
}

// generationOf renders a listed generation the way storage events carry it.
func generationOf(obj models.ObjectInfo) string {
	if obj.Generation == 0 {
		return ""
	}
	return strconv.FormatInt(obj.Generation, 10)
}
