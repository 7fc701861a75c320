package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
	"github.com/interlnkd/LibreTranslate/internal/translation"
	"github.com/interlnkd/LibreTranslate/internal/translation/translationtest"
	"github.com/interlnkd/LibreTranslate/internal/workerpool"
)

const (
	pendingKey   = "production/products/translations/pending/de/products.csv"
	failedKey    = "production/products/translations/failed/de/products.csv"
	completedDir = "production/products/translations/completed/de/"
)

func catalogue(rows int) *tabular.Document {
	doc := &tabular.Document{Header: []string{"sku", "product_name", "description", "raw_category"}}
	for i := 0; i < rows; i++ {
		doc.Rows = append(doc.Rows, []string{
			fmt.Sprintf("SKU-%04d", i),
			fmt.Sprintf("item-%03d", i),
			fmt.Sprintf("Beschreibung %d", i),
			"Schuhe",
		})
	}
	return doc
}

func testConfig() DocumentTranslatorConfig {
	return DocumentTranslatorConfig{
		Lifecycle:        models.DefaultLifecycle(),
		SourceLanguage:   "de",
		TargetLanguage:   "en",
		ChunkSize:        500,
		ChunkConcurrency: 5,
	}
}

func newPipelineColumns(t *testing.T, svc translation.Service) ColumnTranslator {
	t.Helper()
	chunks := workerpool.New("chunks", 5, 0)
	groups := workerpool.New("groups", 100, 0)
	t.Cleanup(chunks.Close)
	t.Cleanup(groups.Close)
	batch, err := translation.NewBatchClient(svc, groups, translation.BatchConfig{})
	require.NoError(t, err)
	columns, err := translation.NewColumnTranslator(batch, chunks)
	require.NoError(t, err)
	return columns
}

func newTestTranslator(t *testing.T, store *memStore, columns ColumnTranslator, status StatusRecorder) *DocumentTranslator {
	t.Helper()
	f, err := NewDocumentTranslatorWith(testConfig(), store, columns, status)
	require.NoError(t, err)
	return f
}

func request(key string) *models.TranslateDocumentRequest {
	return &models.TranslateDocumentRequest{JobID: "job-1", Key: key, Market: "de"}
}

func TestProcessTranslatesEveryRequiredColumn(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(1200))
	status := newMemStatus()
	svc := &translationtest.MockService{}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, resp.Status)
	assert.Equal(t, 1200, resp.RowCount)
	assert.Equal(t, "de", resp.Market)

	assert.False(t, store.has(pendingKey), "source must be retired")
	assert.False(t, store.has(failedKey))
	outputs := store.keysWithPrefix(completedDir)
	require.Len(t, outputs, 1)
	assert.Equal(t, outputs[0], resp.OutputKey)
	assert.True(t, strings.HasPrefix(outputs[0], completedDir+"products-"))
	assert.True(t, strings.HasSuffix(outputs[0], ".csv"))

	out := store.doc(t, outputs[0])
	assert.Equal(t, []string{"sku", "product_name", "description", "raw_category", "product_name_en", "description_en", "raw_category_en"}, out.Header)
	require.Equal(t, 1200, out.Len())
	for i, row := range out.Rows {
		require.Equal(t, fmt.Sprintf("en:item-%03d", i), row[4], "row %d", i)
		require.Equal(t, fmt.Sprintf("en:Beschreibung %d", i), row[5], "row %d", i)
		require.Equal(t, "en:Schuhe", row[6], "row %d", i)
	}
	assert.EqualValues(t, 3*1200, svc.TranslateCalls())

	assert.Equal(t, []string{
		models.StatusFetching, models.StatusValidating, models.StatusTranslating,
		models.StatusPersisting, models.StatusRetiring, models.StatusDone,
	}, status.statuses("job-1"))
	assert.Equal(t, resp.OutputKey, status.last("job-1").OutputKey)
}

func TestProcessSingleItemFailureRoutesOriginalToFailed(t *testing.T) {
	store := newMemStore()
	original := store.putDoc(t, pendingKey, catalogue(1200))
	status := newMemStatus()
	boom := errors.New("translation service unavailable")
	svc := &translationtest.MockService{FailOn: map[string]error{"item-734": boom}}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, resp)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindService, kind)

	assert.False(t, store.has(pendingKey))
	moved, ok := store.raw(failedKey)
	require.True(t, ok)
	assert.Equal(t, original, moved, "failed copy must be the unmodified original")
	assert.Empty(t, store.keysWithPrefix(completedDir))
	assert.Zero(t, store.writes)

	last := status.last("job-1")
	assert.Equal(t, models.StatusFailed, last.Status)
	assert.Contains(t, last.ErrorDetails, "translation service unavailable")
}

func TestProcessMissingColumnRejectsWithoutFullRead(t *testing.T) {
	store := newMemStore()
	doc := catalogue(20)
	doc.Header[2] = "long_description"
	store.putDoc(t, pendingKey, doc)
	status := newMemStatus()
	svc := &translationtest.MockService{}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.NoError(t, err)
	assert.Equal(t, ResultRejected, resp.Status)
	assert.Equal(t, []string{"description"}, resp.Missing)
	assert.Equal(t, failedKey, resp.FailedKey)

	assert.Equal(t, 1, store.headerReads)
	assert.Zero(t, store.fullReads)
	assert.Zero(t, svc.TranslateCalls())
	assert.True(t, store.has(failedKey))
	assert.False(t, store.has(pendingKey))

	last := status.last("job-1")
	assert.Equal(t, models.StatusRejected, last.Status)
	assert.Equal(t, "missing_columns: description", last.ErrorDetails)
}

func TestProcessUnsupportedFormatRejectsWithoutReading(t *testing.T) {
	key := "production/products/translations/pending/de/products.xlsx"
	store := newMemStore()
	store.putRaw(key, []byte("PK\x03\x04"))
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), newMemStatus())

	resp, err := f.Process(context.Background(), request(key))
	require.NoError(t, err)
	assert.Equal(t, ResultRejected, resp.Status)
	assert.Zero(t, store.headerReads)
	assert.True(t, store.has("production/products/translations/failed/de/products.xlsx"))
}

func TestProcessRowWiderThanHeaderFailsWithoutOutput(t *testing.T) {
	store := newMemStore()
	original := []byte("sku,product_name,description,raw_category\nSKU-1,Schuh,Leder,Schuhe,stray\nSKU-2,Hut,Wolle,Kopf\n")
	store.putRaw(pendingKey, original)
	status := newMemStatus()
	svc := &translationtest.MockService{}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, tabular.ErrRowTooWide)
	assert.Nil(t, resp)
	assert.False(t, apperrors.IsRetryable(err))

	assert.Zero(t, svc.TranslateCalls())
	assert.Zero(t, store.writes)
	assert.Empty(t, store.keysWithPrefix(completedDir))
	assert.False(t, store.has(pendingKey))
	moved, ok := store.raw(failedKey)
	require.True(t, ok)
	assert.Equal(t, original, moved)
	assert.Equal(t, models.StatusFailed, status.last("job-1").Status)
}

func TestProcessExistingTargetColumnRejects(t *testing.T) {
	store := newMemStore()
	doc := catalogue(4)
	doc.Header = append(doc.Header, "description_en")
	for i := range doc.Rows {
		doc.Rows[i] = append(doc.Rows[i], "upstream copy")
	}
	original := store.putDoc(t, pendingKey, doc)
	status := newMemStatus()
	svc := &translationtest.MockService{}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.NoError(t, err)
	assert.Equal(t, ResultRejected, resp.Status)
	assert.Equal(t, []string{"description_en"}, resp.Conflicting)
	assert.Zero(t, svc.TranslateCalls())
	assert.Empty(t, store.keysWithPrefix(completedDir))
	moved, ok := store.raw(failedKey)
	require.True(t, ok)
	assert.Equal(t, original, moved)

	last := status.last("job-1")
	assert.Equal(t, models.StatusRejected, last.Status)
	assert.Equal(t, "target_column_exists: description_en", last.ErrorDetails)
}

func TestProcessRejectionRelocationFailureIsReturned(t *testing.T) {
	store := newMemStore()
	doc := catalogue(1)
	doc.Header = doc.Header[:2]
	store.putDoc(t, pendingKey, doc)
	copyErr := errors.New("bucket is read-only")
	store.failCopy[pendingKey] = copyErr
	status := newMemStatus()
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), status)

	_, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, copyErr)
	assert.True(t, store.has(pendingKey))
	assert.Equal(t, models.StatusFailed, status.last("job-1").Status)
}

type integrityFailure struct{ calls int }

func (c *integrityFailure) TranslateColumn(_ context.Context, _ *slog.Logger, _ *tabular.Document, job translation.ColumnJob) error {
	c.calls++
	return apperrors.Integrity("translate chunk", fmt.Errorf("%w: column %s", tabular.ErrCardinalityMismatch, job.Source))
}

func TestProcessIntegrityFailureNeverPersists(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(10))
	columns := &integrityFailure{}
	f := newTestTranslator(t, store, columns, newMemStatus())

	_, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, tabular.ErrCardinalityMismatch)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, columns.calls, "later columns must not run")
	assert.Zero(t, store.writes)
	assert.True(t, store.has(failedKey))
}

func TestProcessRelocationFailureIsJoinedOntoOriginalError(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(10))
	boom := errors.New("upstream 503")
	copyErr := errors.New("permission denied")
	store.failCopy[pendingKey] = copyErr
	status := newMemStatus()
	svc := &translationtest.MockService{FailOn: map[string]error{"item-003": boom}}
	f := newTestTranslator(t, store, newPipelineColumns(t, svc), status)

	_, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, copyErr)
	assert.True(t, store.has(pendingKey), "source stays pending when it cannot be relocated")
	assert.Equal(t, models.StatusFailed, status.last("job-1").Status)
}

func TestProcessPersistFailureRelocates(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(10))
	writeErr := errors.New("quota exceeded")
	store.failWrite = writeErr
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), newMemStatus())

	_, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, writeErr)
	kind, _ := apperrors.KindOf(err)
	assert.Equal(t, apperrors.KindPersistence, kind)
	assert.Empty(t, store.keysWithPrefix(completedDir))
	assert.True(t, store.has(failedKey))
	assert.False(t, store.has(pendingKey))
}

func TestProcessRetireFailureRemovesPersistedOutput(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(10))
	deleteErr := errors.New("503 backend error")
	store.failDelete[pendingKey] = deleteErr
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), newMemStatus())

	_, err := f.Process(context.Background(), request(pendingKey))
	require.ErrorIs(t, err, deleteErr)
	assert.Empty(t, store.keysWithPrefix(completedDir), "output of a failed job must not stay in completed")
	assert.True(t, store.has(failedKey))
}

type cancellingColumns struct{ cancel context.CancelFunc }

func (c cancellingColumns) TranslateColumn(ctx context.Context, _ *slog.Logger, _ *tabular.Document, _ translation.ColumnJob) error {
	c.cancel()
	return ctx.Err()
}

func TestProcessRelocatesEvenWhenRequestIsCancelled(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(3))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newTestTranslator(t, store, cancellingColumns{cancel: cancel}, newMemStatus())

	_, err := f.Process(ctx, request(pendingKey))
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, store.has(failedKey))
	assert.False(t, store.has(pendingKey))
}

func TestProcessMissingSourceIsSkipped(t *testing.T) {
	store := newMemStore()
	status := newMemStatus()
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, resp.Status)
	assert.Empty(t, store.keysWithPrefix(""))
	assert.Equal(t, models.StatusSkipped, status.last("job-1").Status)
}

func TestProcessStatusRecorderFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(5))
	status := newMemStatus()
	status.err = errors.New("firestore unavailable")
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), status)

	resp, err := f.Process(context.Background(), request(pendingKey))
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, resp.Status)
}

func TestProcessRejectsInvalidLocators(t *testing.T) {
	f := newTestTranslator(t, newMemStore(), newPipelineColumns(t, &translationtest.MockService{}), newMemStatus())
	tests := []struct {
		name string
		req  *models.TranslateDocumentRequest
	}{
		{"outside root", &models.TranslateDocumentRequest{Key: "uploads/de/products.csv"}},
		{"not pending", &models.TranslateDocumentRequest{Key: failedKey}},
		{"market mismatch", &models.TranslateDocumentRequest{Key: pendingKey, Market: "fr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Process(context.Background(), tt.req)
			kind, ok := apperrors.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindValidation, kind)
		})
	}
}

func TestProcessDerivesMarketAndJobIDWhenOmitted(t *testing.T) {
	store := newMemStore()
	store.putDoc(t, pendingKey, catalogue(2))
	status := newMemStatus()
	f := newTestTranslator(t, store, newPipelineColumns(t, &translationtest.MockService{}), status)

	resp, err := f.Process(context.Background(), &models.TranslateDocumentRequest{Key: pendingKey})
	require.NoError(t, err)
	assert.Equal(t, "de", resp.Market)
	assert.Equal(t, models.StatusDone, status.last(models.JobID(pendingKey, "")).Status)
}

func TestCompletedName(t *testing.T) {
	a := completedName("products.csv")
	b := completedName("products.csv")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "products-"))
	assert.True(t, strings.HasSuffix(a, ".csv"))
}

func TestNewDocumentTranslatorWithValidation(t *testing.T) {
	_, err := NewDocumentTranslatorWith(testConfig(), nil, &integrityFailure{}, newMemStatus())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.TargetLanguage = ""
	_, err = NewDocumentTranslatorWith(cfg, newMemStore(), &integrityFailure{}, newMemStatus())
	assert.Error(t, err)
}
