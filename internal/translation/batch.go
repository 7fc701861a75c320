package translation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/workerpool"
)

const (
	DefaultGroupSize        = 50
	DefaultGroupConcurrency = 100
	DefaultCallTimeout      = 60 * time.Second
)

// BatchConfig sizes the inner level of concurrency.
type BatchConfig struct {
	// GroupSize is the number of items handed to one inner worker.
	GroupSize int
	// GroupConcurrency caps the groups in flight for a single batch.
	GroupConcurrency int
	// CallTimeout bounds each TranslateOne call. Zero disables it.
	CallTimeout time.Duration
}

// BatchResult is the translation of one batch, aligned 1:1 with the input.
type BatchResult struct {
	Translations []string
	// Language is the resolved source language code.
	Language string
	// Confidence is the detection confidence, 1 for an explicit source and 0
	// when the batch was echoed without calling the service.
	Confidence float64
}

// BatchClient translates flat lists of strings through the translation service.
type BatchClient struct {
	service     Service
	pool        *workerpool.Pool
	groupSize   int
	limit       int
	callTimeout time.Duration
}

// NewBatchClient builds a client that runs its groups on pool.
func NewBatchClient(service Service, pool *workerpool.Pool, cfg BatchConfig) (*BatchClient, error) {
	if service == nil {
		return nil, fmt.Errorf("translation service must not be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("inner worker pool must not be nil")
	}
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = DefaultGroupSize
	}
	if cfg.GroupConcurrency <= 0 {
		cfg.GroupConcurrency = DefaultGroupConcurrency
	}
	if cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("call timeout must not be negative, got %s", cfg.CallTimeout)
	}
	return &BatchClient{
		service:     service,
		pool:        pool,
		groupSize:   cfg.GroupSize,
		limit:       cfg.GroupConcurrency,
		callTimeout: cfg.CallTimeout,
	}, nil
}

type group struct {
	offset int
	items  []string
}

// Translate translates texts from source to target. source may be AutoDetect,
// in which case one language is detected for the whole batch. Any item failure
// fails the batch; no partial result is returned.
func (c *BatchClient) Translate(ctx context.Context, texts []string, source, target string) (BatchResult, error) {
	if len(texts) == 0 {
		return BatchResult{Translations: []string{}}, nil
	}
	if AllNonTranslatable(texts) {
		return BatchResult{Translations: echo(texts), Language: source, Confidence: 0}, nil
	}

	src, confidence, err := c.resolveSource(ctx, texts, source)
	if err != nil {
		return BatchResult{}, err
	}
	tgt, err := ResolveLanguage(target)
	if err != nil {
		return BatchResult{}, apperrors.Language("resolve target language", err)
	}

	result := BatchResult{Language: src.Code, Confidence: confidence}
	if src.Code == tgt.Code {
		result.Translations = echo(texts)
		return result, nil
	}
	if !c.service.IsPathAvailable(src.Code, tgt.Code) {
		return BatchResult{}, apperrors.Language("check translation path", fmt.Errorf("%w: %s -> %s", ErrNoTranslationPath, src.Code, tgt.Code))
	}

	groups := splitGroups(texts, c.groupSize)
	translated, err := workerpool.Map(ctx, c.pool, c.limit, groups, func(ctx context.Context, _ int, g group) ([]string, error) {
		return c.translateGroup(ctx, g, src.Code, tgt.Code)
	})
	if err != nil {
		return BatchResult{}, err
	}

	out := make([]string, 0, len(texts))
	for _, g := range translated {
		out = append(out, g...)
	}
	if len(out) != len(texts) {
		return BatchResult{}, apperrors.Integrity("assemble batch", fmt.Errorf("got %d translations for %d inputs", len(out), len(texts)))
	}
	result.Translations = out
	return result, nil
}

func (c *BatchClient) resolveSource(ctx context.Context, texts []string, source string) (Language, float64, error) {
	if source != AutoDetect {
		lang, err := ResolveLanguage(source)
		if err != nil {
			return Language{}, 0, apperrors.Language("resolve source language", err)
		}
		return lang, 1, nil
	}

	detections, err := c.service.DetectLanguages(ctx, texts)
	if err != nil {
		return Language{}, 0, apperrors.Service("detect language", err)
	}
	if len(detections) == 0 {
		return Language{}, 0, apperrors.Language("detect language", ErrUndetectedLanguage)
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	lang, err := ResolveLanguage(best.Language)
	if err != nil {
		return Language{}, 0, apperrors.Language("resolve detected language", err)
	}
	slog.Debug("Detected batch language.", "language", lang.Code, "confidence", best.Confidence, "items", len(texts))
	return lang, best.Confidence, nil
}

// translateGroup runs on an inner worker and translates its items one at a time.
func (c *BatchClient) translateGroup(ctx context.Context, g group, source, target string) ([]string, error) {
	out := make([]string, len(g.items))
	for i, text := range g.items {
		if IsNonTranslatable(text) {
			out[i] = text
			continue
		}
		translated, err := c.translateOne(ctx, text, source, target)
		if err != nil {
			return nil, apperrors.Service(fmt.Sprintf("translate item %d", g.offset+i), err)
		}
		out[i] = translated
	}
	return out, nil
}

func (c *BatchClient) translateOne(ctx context.Context, text, source, target string) (string, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.service.TranslateOne(ctx, text, source, target)
}

func splitGroups(texts []string, size int) []group {
	groups := make([]group, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		groups = append(groups, group{offset: start, items: texts[start:end]})
	}
	return groups
}

func echo(texts []string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	return out
}
