package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
	"github.com/interlnkd/LibreTranslate/internal/translation"
	"github.com/interlnkd/LibreTranslate/internal/workerpool"
)

// cleanupTimeout bounds the failure path, which runs even when the request
// context is already cancelled.
const cleanupTimeout = 2 * time.Minute

// Response statuses of TranslateDocumentResponse.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultSkipped  = "skipped"
)

// DocumentTranslator holds the dependencies for the translation logic.
type DocumentTranslator struct {
	mover     *Mover
	validator *Validator
	columns   ColumnTranslator
	status    StatusRecorder
	config    DocumentTranslatorConfig
	newName   func(filename string) string
	closers   []func() error
}

// NewDocumentTranslator creates a DocumentTranslator wired to Cloud Storage,
// Firestore and Vertex AI. The worker pools live as long as the instance.
func NewDocumentTranslator(ctx context.Context) (*DocumentTranslator, error) {
	config, err := loadTranslatorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	store, err := gcp.NewObjectStore(storageClient, config.DocumentsBucket)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	tracker, err := gcp.NewJobTracker(firestoreClient, config.FirestoreCollection)
	if err != nil {
		return nil, err
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.VertexModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	chunks := workerpool.New("chunks", config.ChunkConcurrency, config.PoolQueueDepth)
	groups := workerpool.New("groups", config.GroupConcurrency, config.PoolQueueDepth)
	batch, err := translation.NewBatchClient(gcp.NewVertexTranslator(vertexClient), groups, translation.BatchConfig{
		GroupSize:        config.GroupSize,
		GroupConcurrency: config.GroupConcurrency,
		CallTimeout:      config.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	columns, err := translation.NewColumnTranslator(batch, chunks)
	if err != nil {
		return nil, err
	}

	f, err := NewDocumentTranslatorWith(*config, store, columns, tracker)
	if err != nil {
		return nil, err
	}
	f.closers = []func() error{
		func() error { chunks.Close(); return nil },
		func() error { groups.Close(); return nil },
		vertexClient.Close,
		firestoreClient.Close,
		storageClient.Close,
	}
	slog.Info("Document translator initialized.",
		"bucket", config.DocumentsBucket,
		"targetLanguage", config.TargetLanguage,
		"chunkConcurrency", config.ChunkConcurrency,
		"groupConcurrency", config.GroupConcurrency)
	return f, nil
}

// NewDocumentTranslatorWith assembles a DocumentTranslator from explicit collaborators.
func NewDocumentTranslatorWith(config DocumentTranslatorConfig, store ObjectStore, columns ColumnTranslator, status StatusRecorder) (*DocumentTranslator, error) {
	if store == nil || columns == nil || status == nil {
		return nil, fmt.Errorf("store, column translator and status recorder must not be nil")
	}
	if config.TargetLanguage == "" {
		return nil, fmt.Errorf("target language must be set")
	}
	if config.TargetColumnSuffix == "" {
		config.TargetColumnSuffix = "_" + config.TargetLanguage
	}
	if config.Lifecycle == (models.Lifecycle{}) {
		config.Lifecycle = models.DefaultLifecycle()
	}
	config.Lifecycle = config.Lifecycle.Normalize()

	if len(config.RequiredColumns) == 0 {
		config.RequiredColumns = DefaultRequiredColumns
	}
	targets := make([]string, len(config.RequiredColumns))
	for i, source := range config.RequiredColumns {
		targets[i] = config.TargetColumn(source)
	}
	validator := NewValidator(store, config.RequiredColumns, targets)
	config.RequiredColumns = validator.Required()
	return &DocumentTranslator{
		mover:     NewMover(store),
		validator: validator,
		columns:   columns,
		status:    status,
		config:    config,
		newName:   completedName,
	}, nil
}

// Close releases the pools and clients owned by the translator.
func (f *DocumentTranslator) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Process runs one job: validate, translate every required column, persist the
// result in the completed area and retire the pending document. Any failure
// after validation relocates the untouched source to the failed area and
// returns the original error.
func (f *DocumentTranslator) Process(ctx context.Context, req *models.TranslateDocumentRequest) (*models.TranslateDocumentResponse, error) {
	jobID := req.JobID
	if jobID == "" {
		jobID = models.JobID(req.Key, "")
	}
	logCtx := slog.With("gcsObject", req.Key, "market", req.Market, "jobId", jobID, "executionId", req.ExecutionID)
	logCtx.Info("Starting document translation.")

	loc, err := f.locate(req)
	if err != nil {
		logCtx.Error("Rejecting job with an invalid locator.", "error", err)
		return nil, err
	}
	resp := &models.TranslateDocumentResponse{SourceKey: loc.Key(), Market: loc.Market}
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusFetching, SourceKey: loc.Key(), Market: loc.Market})

	// --- 1. Validate on the header alone ---
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusValidating})
	report, err := f.validator.Validate(ctx, logCtx, loc)
	if errors.Is(err, models.ErrObjectNotFound) {
		logCtx.Warn("Source document is no longer pending. Skipping.")
		f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusSkipped, ErrorDetails: "source document not found"})
		resp.Status = ResultSkipped
		return resp, nil
	}
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, loc, nil, "failed to validate document", err)
	}
	if !report.OK {
		return f.reject(ctx, logCtx, jobID, loc, report, resp)
	}

	// --- 2. Translate the required columns in declared order ---
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusTranslating})
	doc, err := f.mover.Read(ctx, logCtx, loc)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, loc, nil, "failed to load document", err)
	}
	if err := f.translateColumns(ctx, logCtx, doc); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, loc, nil, "failed to translate document", err)
	}

	// --- 3. Persist under a fresh name in the completed area ---
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusPersisting})
	out := loc.In(f.config.Lifecycle.Completed).WithFilename(f.newName(loc.Filename))
	if err := f.mover.Put(ctx, logCtx, out, doc); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, loc, nil, "failed to persist translated document", err)
	}

	// --- 4. Retire the pending source ---
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusRetiring, OutputKey: out.Key()})
	if err := f.mover.Delete(ctx, logCtx, loc); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, loc, &out, "failed to retire pending document", err)
	}

	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusDone, OutputKey: out.Key(), RowCount: doc.Len()})
	logCtx.Info("Document translation complete.", "outputObject", out.Key(), "rows", doc.Len())
	resp.Status = ResultSuccess
	resp.OutputKey = out.Key()
	resp.RowCount = doc.Len()
	return resp, nil
}

func (f *DocumentTranslator) locate(req *models.TranslateDocumentRequest) (models.Locator, error) {
	loc, err := f.config.Lifecycle.Parse(req.Key)
	if err != nil {
		return models.Locator{}, apperrors.Validation("locate document", err)
	}
	if loc.Area != f.config.Lifecycle.Pending {
		return models.Locator{}, apperrors.Validation("locate document", fmt.Errorf("object %q is not in the %s area", req.Key, f.config.Lifecycle.Pending))
	}
	if req.Market != "" && req.Market != loc.Market {
		return models.Locator{}, apperrors.Validation("locate document", fmt.Errorf("market %q does not match object %q", req.Market, req.Key))
	}
	return loc, nil
}

func (f *DocumentTranslator) translateColumns(ctx context.Context, logCtx *slog.Logger, doc *tabular.Document) error {
	for i, source := range f.config.RequiredColumns {
		job := translation.ColumnJob{
			Source:      source,
			Target:      f.config.TargetColumn(source),
			SourceLang:  f.config.SourceLanguage,
			TargetLang:  f.config.TargetLanguage,
			ChunkSize:   f.config.ChunkSize,
			Concurrency: f.config.ChunkConcurrency,
		}
		logCtx.Info("Translating column.", "column", source, "index", i+1, "of", len(f.config.RequiredColumns))
		if err := f.columns.TranslateColumn(ctx, logCtx, doc, job); err != nil {
			return err
		}
	}
	return nil
}

// reject routes a document that failed validation to the failed area. The job
// ends cleanly unless the relocation itself fails.
func (f *DocumentTranslator) reject(ctx context.Context, logCtx *slog.Logger, jobID string, loc models.Locator, report ValidationReport, resp *models.TranslateDocumentResponse) (*models.TranslateDocumentResponse, error) {
	failed, err := f.mover.Relocate(ctx, logCtx, loc, f.config.Lifecycle.Failed)
	if err != nil {
		logCtx.Error("CRITICAL: Failed to relocate rejected document.", "error", err)
		f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusFailed, ErrorDetails: fmt.Sprintf("%s; relocation failed: %v", report, err)})
		return nil, fmt.Errorf("failed to relocate rejected document: %w", err)
	}
	f.setStatus(ctx, logCtx, jobID, models.StatusUpdate{Status: models.StatusRejected, ErrorDetails: report.String()})
	logCtx.Info("Document rejected.", "reason", report.Reason, "missing", report.Missing, "conflicting", report.Conflicting, "failedObject", failed.Key())

	resp.Status = ResultRejected
	resp.FailedKey = failed.Key()
	resp.Missing = report.Missing
	resp.Conflicting = report.Conflicting
	return resp, nil
}

// handleError is the single recovery action of the pipeline: drop any output
// already persisted, relocate the original to the failed area and mark the
// job FAILED. The returned error still matches the original with errors.Is.
func (f *DocumentTranslator) handleError(ctx context.Context, logCtx *slog.Logger, jobID string, loc models.Locator, persisted *models.Locator, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if persisted != nil {
		if err := f.mover.Delete(cleanupCtx, logCtx, *persisted); err != nil {
			logCtx.Warn("Failed to remove persisted output after a later failure.", "outputObject", persisted.Key(), "error", err)
		}
	}

	fullErr := fmt.Errorf("%s: %w", message, originalErr)
	failedKey := loc.In(f.config.Lifecycle.Failed).Key()
	if _, err := f.mover.Relocate(cleanupCtx, logCtx, loc, f.config.Lifecycle.Failed); err != nil {
		logCtx.Error("CRITICAL: Failed to relocate document to the failed area after a processing error.", "failedObject", failedKey, "relocateError", err)
		fullErr = errors.Join(fullErr, err)
	}

	f.setStatus(cleanupCtx, logCtx, jobID, models.StatusUpdate{Status: models.StatusFailed, ErrorDetails: fullErr.Error()})
	return fullErr
}

func (f *DocumentTranslator) setStatus(ctx context.Context, logCtx *slog.Logger, jobID string, update models.StatusUpdate) {
	if err := f.status.RecordStatus(ctx, jobID, update); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status.", "status", update.Status, "updateError", err)
	}
}

// completedName keeps the source stem and appends a time-ordered unique suffix,
// so reprocessing a document never collides with an earlier output.
func completedName(filename string) string {
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s-%s%s", stem, uuid.NewString(), ext)
	}
	return fmt.Sprintf("%s-%s%s", stem, id.String(), ext)
}
