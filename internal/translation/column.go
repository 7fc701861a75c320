package translation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
	"github.com/interlnkd/LibreTranslate/internal/workerpool"
)

const (
	DefaultChunkSize        = 500
	DefaultChunkConcurrency = 5
)

// ColumnJob describes how one source column becomes one target column.
type ColumnJob struct {
	Source      string
	Target      string
	SourceLang  string
	TargetLang  string
	ChunkSize   int
	Concurrency int
}

func (j ColumnJob) withDefaults() ColumnJob {
	if j.ChunkSize <= 0 {
		j.ChunkSize = DefaultChunkSize
	}
	if j.Concurrency <= 0 {
		j.Concurrency = DefaultChunkConcurrency
	}
	if j.SourceLang == "" {
		j.SourceLang = AutoDetect
	}
	return j
}

// Chunk is a contiguous slice of a column's values.
type Chunk struct {
	Index  int
	Offset int
	Values []string
}

// SplitIntoChunks partitions values into chunks of at most size, preserving order.
func SplitIntoChunks(values []string, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: start,
			Values: values[start:end],
		})
	}
	return chunks
}

// BatchTranslator is the part of BatchClient the column translator needs.
type BatchTranslator interface {
	Translate(ctx context.Context, texts []string, source, target string) (BatchResult, error)
}

var _ BatchTranslator = (*BatchClient)(nil)

// ColumnTranslator translates whole document columns chunk by chunk.
type ColumnTranslator struct {
	batch BatchTranslator
	pool  *workerpool.Pool
}

// NewColumnTranslator runs chunks on pool and hands each one to batch.
func NewColumnTranslator(batch BatchTranslator, pool *workerpool.Pool) (*ColumnTranslator, error) {
	if batch == nil {
		return nil, fmt.Errorf("batch translator must not be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("outer worker pool must not be nil")
	}
	return &ColumnTranslator{batch: batch, pool: pool}, nil
}

// TranslateColumn translates job.Source and appends the result to doc as job.Target.
// doc is left untouched when any chunk fails.
func (t *ColumnTranslator) TranslateColumn(ctx context.Context, logCtx *slog.Logger, doc *tabular.Document, job ColumnJob) error {
	job = job.withDefaults()
	values, err := doc.Column(job.Source)
	if err != nil {
		return apperrors.Validation("read source column", err)
	}

	start := time.Now()
	translated, err := t.TranslateValues(ctx, logCtx, values, job)
	if err != nil {
		return fmt.Errorf("column %s: %w", job.Source, err)
	}
	if err := doc.AppendColumn(job.Target, translated); err != nil {
		return apperrors.Integrity("append column "+job.Target, err)
	}
	logCtx.Info("Column translated.", "sourceColumn", job.Source, "targetColumn", job.Target, "rows", len(values), "duration", time.Since(start).String())
	return nil
}

// TranslateValues translates an ordered list of column values and returns the
// translations in the same order.
func (t *ColumnTranslator) TranslateValues(ctx context.Context, logCtx *slog.Logger, values []string, job ColumnJob) ([]string, error) {
	job = job.withDefaults()
	chunks := SplitIntoChunks(values, job.ChunkSize)
	logCtx.Info("Translating column.", "sourceColumn", job.Source, "rows", len(values), "chunks", len(chunks), "chunkSize", job.ChunkSize)

	results, err := workerpool.Map(ctx, t.pool, job.Concurrency, chunks, func(ctx context.Context, _ int, c Chunk) ([]string, error) {
		res, err := t.batch.Translate(ctx, c.Values, job.SourceLang, job.TargetLang)
		if err != nil {
			logCtx.Error("Chunk translation failed.", "sourceColumn", job.Source, "chunk", c.Index, "offset", c.Offset, "error", err)
			return nil, fmt.Errorf("chunk %d (rows %d-%d): %w", c.Index, c.Offset, c.Offset+len(c.Values)-1, err)
		}
		if len(res.Translations) != len(c.Values) {
			return nil, apperrors.Integrity("translate chunk", fmt.Errorf("%w: chunk %d got %d translations for %d values", tabular.ErrCardinalityMismatch, c.Index, len(res.Translations), len(c.Values)))
		}
		logCtx.Debug("Chunk translated.", "sourceColumn", job.Source, "chunk", c.Index, "language", res.Language, "confidence", res.Confidence)
		return res.Translations, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(values))
	for _, r := range results {
		out = append(out, r...)
	}
	if len(out) != len(values) {
		return nil, apperrors.Integrity("assemble column", fmt.Errorf("%w: %d translations for %d rows", tabular.ErrCardinalityMismatch, len(out), len(values)))
	}
	return out, nil
}
