package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/interlnkd/LibreTranslate/internal/apperrors"
	"github.com/interlnkd/LibreTranslate/internal/models"
	"github.com/interlnkd/LibreTranslate/internal/tabular"
)

// Mover moves documents between lifecycle areas. A move is always a copy
// followed by a delete of the source, so an interrupted move leaves the
// document in at least one place.
type Mover struct {
	store ObjectStore
}

// NewMover builds a mover over store.
func NewMover(store ObjectStore) *Mover {
	return &Mover{store: store}
}

// Read loads the full document at loc. A malformed document is a
// validation failure; anything else is a persistence failure.
func (m *Mover) Read(ctx context.Context, logCtx *slog.Logger, loc models.Locator) (*tabular.Document, error) {
	doc, err := m.store.ReadDocument(ctx, loc.Key())
	if err != nil {
		logCtx.Error("Failed to read document.", "gcsObject", loc.Key(), "error", err)
		if errors.Is(err, tabular.ErrRowTooWide) {
			return nil, apperrors.Validation("read document", err)
		}
		return nil, apperrors.Persistence("read document", err)
	}
	return doc, nil
}

// Put writes doc to a new location. An existing object is never overwritten.
func (m *Mover) Put(ctx context.Context, logCtx *slog.Logger, loc models.Locator, doc *tabular.Document) error {
	if err := m.store.WriteDocument(ctx, loc.Key(), doc); err != nil {
		logCtx.Error("Failed to write document.", "gcsObject", loc.Key(), "error", err)
		return apperrors.Persistence("write document", err)
	}
	logCtx.Info("Document written.", "gcsObject", loc.Key(), "rows", doc.Len())
	return nil
}

// Copy duplicates src at dst.
func (m *Mover) Copy(ctx context.Context, logCtx *slog.Logger, src, dst models.Locator) error {
	if err := m.store.Copy(ctx, src.Key(), dst.Key()); err != nil {
		logCtx.Error("Failed to copy document.", "source", src.Key(), "destination", dst.Key(), "error", err)
		return apperrors.Persistence("copy document", err)
	}
	return nil
}

// Delete removes loc. A document that is already gone counts as deleted.
func (m *Mover) Delete(ctx context.Context, logCtx *slog.Logger, loc models.Locator) error {
	err := m.store.Delete(ctx, loc.Key())
	if errors.Is(err, models.ErrObjectNotFound) {
		logCtx.Warn("Document already deleted.", "gcsObject", loc.Key())
		return nil
	}
	if err != nil {
		logCtx.Error("Failed to delete document.", "gcsObject", loc.Key(), "error", err)
		return apperrors.Persistence("delete document", err)
	}
	return nil
}

// Relocate moves loc into area, keeping market and filename. Replaying a
// relocation that already completed is a no-op.
func (m *Mover) Relocate(ctx context.Context, logCtx *slog.Logger, loc models.Locator, area string) (models.Locator, error) {
	dst := loc.In(area)
	if dst.Key() == loc.Key() {
		return dst, nil
	}

	err := m.store.Copy(ctx, loc.Key(), dst.Key())
	if errors.Is(err, models.ErrObjectNotFound) {
		exists, statErr := m.store.Exists(ctx, dst.Key())
		if statErr == nil && exists {
			logCtx.Info("Document already relocated.", "source", loc.Key(), "destination", dst.Key())
			return dst, nil
		}
		if statErr != nil {
			err = errors.Join(err, statErr)
		}
	}
	if err != nil {
		logCtx.Error("Failed to relocate document.", "source", loc.Key(), "destination", dst.Key(), "error", err)
		return models.Locator{}, apperrors.Persistence("relocate document", fmt.Errorf("copy to %s: %w", dst.Key(), err))
	}

	if err := m.Delete(ctx, logCtx, loc); err != nil {
		return models.Locator{}, fmt.Errorf("relocate document: source copied to %s but not removed: %w", dst.Key(), err)
	}
	logCtx.Info("Document relocated.", "source", loc.Key(), "destination", dst.Key())
	return dst, nil
}
