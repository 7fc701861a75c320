package services

import (
	"fmt"
	"time"

	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/translation"
)

// DocumentTranslatorConfig holds all configuration for the translator service.
type DocumentTranslatorConfig struct {
	ProjectID           string
	DocumentsBucket     string
	Lifecycle           models.Lifecycle
	RequiredColumns     []string
	SourceLanguage      string
	TargetLanguage      string
	TargetColumnSuffix  string
	ChunkSize           int
	ChunkConcurrency    int
	GroupSize           int
	GroupConcurrency    int
	PoolQueueDepth      int
	CallTimeout         time.Duration
	VertexAIRegion      string
	VertexModel         string
	FirestoreCollection string
}

// TargetColumn names the translated counterpart of a source column.
func (c DocumentTranslatorConfig) TargetColumn(source string) string {
	return source + c.TargetColumnSuffix
}

// DispatcherConfig holds configuration shared by the dispatcher and the sweeper.
type DispatcherConfig struct {
	ProjectID           string
	DocumentsBucket     string
	Lifecycle           models.Lifecycle
	FirestoreCollection string
	WorkflowID          string
	WorkflowLocation    string
	SweepConcurrency    int
}

func loadLifecycle() models.Lifecycle {
	def := models.DefaultLifecycle()
	return models.Lifecycle{
		Root:      gcp.GetEnv("LIFECYCLE_ROOT", def.Root),
		Pending:   gcp.GetEnv("PENDING_AREA", def.Pending),
		Completed: gcp.GetEnv("COMPLETED_AREA", def.Completed),
		Failed:    gcp.GetEnv("FAILED_AREA", def.Failed),
	}.Normalize()
}

func requireEnv(key string) (string, error) {
	value := gcp.GetEnv(key, "")
	if value == "" {
		return "", fmt.Errorf("%s environment variable must be set", key)
	}
	return value, nil
}

// loadTranslatorConfig loads and validates all necessary environment variables for this service.
func loadTranslatorConfig() (*DocumentTranslatorConfig, error) {
	projectID, err := requireEnv("PROJECT_ID")
	if err != nil {
		return nil, err
	}
	bucket, err := requireEnv("DOCUMENTS_BUCKET")
	if err != nil {
		return nil, err
	}

	cfg := &DocumentTranslatorConfig{
		ProjectID:           projectID,
		DocumentsBucket:     bucket,
		Lifecycle:           loadLifecycle(),
		RequiredColumns:     gcp.GetEnvList("REQUIRED_COLUMNS", DefaultRequiredColumns),
		SourceLanguage:      gcp.GetEnv("SOURCE_LANGUAGE", translation.AutoDetect),
		TargetLanguage:      gcp.GetEnv("TARGET_LANGUAGE", "en"),
		VertexAIRegion:      gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:         gcp.GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", "translation_jobs"),
	}
	cfg.TargetColumnSuffix = gcp.GetEnv("TARGET_COLUMN_SUFFIX", "_"+cfg.TargetLanguage)

	if _, err := translation.ResolveLanguage(cfg.TargetLanguage); err != nil {
		return nil, fmt.Errorf("TARGET_LANGUAGE: %w", err)
	}
	if cfg.SourceLanguage != translation.AutoDetect {
		if _, err := translation.ResolveLanguage(cfg.SourceLanguage); err != nil {
			return nil, fmt.Errorf("SOURCE_LANGUAGE: %w", err)
		}
	}

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"CHUNK_SIZE", translation.DefaultChunkSize, &cfg.ChunkSize},
		{"CHUNK_CONCURRENCY", translation.DefaultChunkConcurrency, &cfg.ChunkConcurrency},
		{"GROUP_SIZE", translation.DefaultGroupSize, &cfg.GroupSize},
		{"GROUP_CONCURRENCY", translation.DefaultGroupConcurrency, &cfg.GroupConcurrency},
	}
	for _, v := range ints {
		if *v.dst, err = gcp.GetEnvInt(v.key, v.fallback); err != nil {
			return nil, err
		}
	}
	// Zero lets each pool pick twice its worker count.
	if cfg.PoolQueueDepth, err = gcp.GetEnvInt("POOL_QUEUE_DEPTH", 0); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = gcp.GetEnvDuration("TRANSLATE_CALL_TIMEOUT", translation.DefaultCallTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDispatcherConfig loads configuration for the pending dispatcher and sweeper.
func loadDispatcherConfig() (*DispatcherConfig, error) {
	projectID, err := requireEnv("PROJECT_ID")
	if err != nil {
		return nil, err
	}
	bucket, err := requireEnv("DOCUMENTS_BUCKET")
	if err != nil {
		return nil, err
	}
	sweepConcurrency, err := gcp.GetEnvInt("SWEEP_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}
	return &DispatcherConfig{
		ProjectID:           projectID,
		DocumentsBucket:     bucket,
		Lifecycle:           loadLifecycle(),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", "translation_jobs"),
		WorkflowLocation:    gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:          gcp.GetEnv("WORKFLOW_ID", "document-translation-queue"),
		SweepConcurrency:    sweepConcurrency,
	}, nil
}
