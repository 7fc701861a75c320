package services

import (
	"context"
	"log/slog"

	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
	"github.com/interlnkd/LibreTranslate/internal/translation"
)

// ObjectStore is the object-storage capability the pipeline runs against.
// *gcp.ObjectStore is the production implementation.
type ObjectStore interface {
	ReadHeader(ctx context.Context, key string) ([]string, error)
	ReadDocument(ctx context.Context, key string) (*tabular.Document, error)
	WriteDocument(ctx context.Context, key string, doc *tabular.Document) error
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]models.ObjectInfo, error)
}

// ObjectLister lists objects under a prefix.
type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]models.ObjectInfo, error)
}

// StatusRecorder writes job transitions. *gcp.JobTracker implements it.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, jobID string, update models.StatusUpdate) error
}

// JobRegistry creates job records for the dispatcher.
type JobRegistry interface {
	Register(ctx context.Context, jobID string, job models.TranslationJob) (bool, error)
	AttachExecution(ctx context.Context, jobID, executionID string) error
	Release(ctx context.Context, jobID string) error
}

// JobQueue hands a job to the queue layer and returns its handle.
type JobQueue interface {
	Enqueue(ctx context.Context, req models.TranslateDocumentRequest) (string, error)
}

// ColumnTranslator is satisfied by *translation.ColumnTranslator.
type ColumnTranslator interface {
	TranslateColumn(ctx context.Context, logCtx *slog.Logger, doc *tabular.Document, job translation.ColumnJob) error
}

var _ ColumnTranslator = (*translation.ColumnTranslator)(nil)
