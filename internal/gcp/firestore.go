package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/interlnkd/LibreTranslate/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// JobTracker keeps one TranslationJob document per pending object generation.
type JobTracker struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewJobTracker stores job records in collection.
func NewJobTracker(client *firestore.Client, collection string) (*JobTracker, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client must not be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name must be provided")
	}
	return &JobTracker{client: client, collection: collection, now: time.Now}, nil
}

// Register creates the job record. It returns false without error when a
// record with the same ID already exists, which marks a duplicate event.
func (t *JobTracker) Register(ctx context.Context, jobID string, job models.TranslationJob) (bool, error) {
	now := t.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.StatusQueued
	}

	_, err := t.client.Collection(t.collection).Doc(jobID).Create(ctx, job)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create job record %s: %w", jobID, err)
	}
	return true, nil
}

// AttachExecution stores the workflow execution that owns the job.
func (t *JobTracker) AttachExecution(ctx context.Context, jobID, executionID string) error {
	updates := []firestore.Update{
		{Path: "executionId", Value: executionID},
		{Path: "updatedAt", Value: t.now()},
	}
	if _, err := t.client.Collection(t.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to attach execution to job %s: %w", jobID, err)
	}
	return nil
}

// RecordStatus merges a transition onto the job record, creating it if the
// job was submitted without going through the dispatcher.
func (t *JobTracker) RecordStatus(ctx context.Context, jobID string, update models.StatusUpdate) error {
	_, err := t.client.Collection(t.collection).Doc(jobID).Set(ctx, update.Fields(t.now()), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to set job %s status to %s: %w", jobID, update.Status, err)
	}
	return nil
}

// Release deletes a job record so a redelivered event can register it again.
func (t *JobTracker) Release(ctx context.Context, jobID string) error {
	if _, err := t.client.Collection(t.collection).Doc(jobID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to release job %s: %w", jobID, err)
	}
	return nil
}
