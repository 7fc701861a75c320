package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/interlnkd/LibreTranslate/internal/gcp"
	"github.com/interlnkd/LibreTranslate/internal/models"
)

// PendingSweeper re-dispatches every document still waiting in the pending
// area. It recovers documents whose storage events never produced a job.
type PendingSweeper struct {
	lister     ObjectLister
	dispatcher *PendingDispatcher
	config     DispatcherConfig
	closers    []func() error
}

// NewPendingSweeper creates a sweeper wired to Cloud Storage, Firestore and Cloud Workflows.
func NewPendingSweeper(ctx context.Context) (*PendingSweeper, error) {
	config, err := loadDispatcherConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	dispatcher, err := newPendingDispatcher(ctx, config)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	store, err := gcp.NewObjectStore(storageClient, config.DocumentsBucket)
	if err != nil {
		return nil, err
	}

	s := NewPendingSweeperWith(*config, store, dispatcher)
	s.closers = []func() error{dispatcher.Close, storageClient.Close}
	return s, nil
}

// NewPendingSweeperWith assembles a sweeper from explicit collaborators.
func NewPendingSweeperWith(config DispatcherConfig, lister ObjectLister, dispatcher *PendingDispatcher) *PendingSweeper {
	if config.Lifecycle == (models.Lifecycle{}) {
		config.Lifecycle = models.DefaultLifecycle()
	}
	config.Lifecycle = config.Lifecycle.Normalize()
	if config.SweepConcurrency <= 0 {
		config.SweepConcurrency = 10
	}
	return &PendingSweeper{lister: lister, dispatcher: dispatcher, config: config}
}

// Close releases the clients owned by the sweeper.
func (s *PendingSweeper) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Process lists the pending area, optionally one market, and dispatches each
// document found.
func (s *PendingSweeper) Process(ctx context.Context, req *models.SweepPendingRequest) (*models.SweepPendingResponse, error) {
	prefix := s.config.Lifecycle.PendingPrefix(req.Market)
	logCtx := slog.With("prefix", prefix, "force", req.Force)
	logCtx.Info("Sweeping pending documents.")

	objects, err := s.lister.List(ctx, prefix)
	if err != nil {
		logCtx.Error("Failed to list pending documents.", "error", err)
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}

	var dispatched, skipped atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.config.SweepConcurrency)

	for _, obj := range objects {
		loc, err := s.config.Lifecycle.Parse(obj.Key)
		if err != nil || loc.Area != s.config.Lifecycle.Pending {
			logCtx.Debug("Skipping object outside the pending layout.", "gcsObject", obj.Key)
			skipped.Add(1)
			continue
		}
		generation := generationOf(obj)
		eg.Go(func() error {
			ok, err := s.dispatcher.Dispatch(gctx, logCtx.With("gcsObject", loc.Key()), loc, generation, req.Force)
			if err != nil {
				return fmt.Errorf("%s: %w", loc.Key(), err)
			}
			if ok {
				dispatched.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}

	resp := &models.SweepPendingResponse{Found: len(objects)}
	err = eg.Wait()
	resp.Dispatched = int(dispatched.Load())
	resp.Skipped = int(skipped.Load())
	if err != nil {
		logCtx.Error("Sweep stopped on a dispatch error.", "error", err, "dispatched", resp.Dispatched)
		return resp, fmt.Errorf("one or more documents failed to dispatch: %w", err)
	}

	resp.Status = "success"
	logCtx.Info("Sweep complete.", "found", resp.Found, "dispatched", resp.Dispatched, "skipped", resp.Skipped)
	return resp, nil
}
