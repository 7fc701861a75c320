package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/interlnkd/LibreTranslate/internal/models"
)

// Validation outcomes reported to callers and stored as job error details.
const (
	ReasonUnsupportedFormat = "unsupported_format"
	ReasonMissingColumns    = "missing_columns"
	ReasonTargetColumnTaken = "target_column_exists"
)

// DefaultRequiredColumns are translated, in this order, for every document.
var DefaultRequiredColumns = []string{"product_name", "description", "raw_category"}

const supportedExtension = ".csv"

// ValidationReport is the result of checking a pending document.
type ValidationReport struct {
	OK          bool
	Reason      string
	Missing     []string
	Conflicting []string
}

func (r ValidationReport) String() string {
	switch {
	case r.OK:
		return "ok"
	case len(r.Missing) > 0:
		return fmt.Sprintf("%s: %s", r.Reason, strings.Join(r.Missing, ", "))
	case len(r.Conflicting) > 0:
		return fmt.Sprintf("%s: %s", r.Reason, strings.Join(r.Conflicting, ", "))
	default:
		return r.Reason
	}
}

// Validator checks format and header of a document before any translation.
type Validator struct {
	store    ObjectStore
	required []string
	targets  []string
}

// NewValidator requires every name in required to appear in the header and
// every name in targets to be absent from it.
func NewValidator(store ObjectStore, required, targets []string) *Validator {
	if len(required) == 0 {
		required = DefaultRequiredColumns
	}
	return &Validator{store: store, required: required, targets: targets}
}

// Required returns the required columns in declared order.
func (v *Validator) Required() []string {
	return append([]string(nil), v.required...)
}

// Validate reads only the header of loc. The error is reserved for I/O
// failures; a document that does not qualify comes back as a report with OK
// set to false.
func (v *Validator) Validate(ctx context.Context, logCtx *slog.Logger, loc models.Locator) (ValidationReport, error) {
	if report := CheckFormat(loc.Filename); !report.OK {
		logCtx.Warn("Unsupported document format.", "filename", loc.Filename)
		return report, nil
	}

	header, err := v.store.ReadHeader(ctx, loc.Key())
	if err != nil {
		logCtx.Error("Failed to read document header.", "error", err)
		return ValidationReport{}, fmt.Errorf("failed to read header: %w", err)
	}

	report := CheckColumns(header, v.required)
	if !report.OK {
		logCtx.Warn("Missing required columns.", "missing", report.Missing, "header", header)
		return report, nil
	}

	report = CheckTargets(header, v.targets)
	if !report.OK {
		logCtx.Warn("Document already carries translated columns.", "conflicting", report.Conflicting, "header", header)
	}
	return report, nil
}

// CheckFormat accepts names with a case-insensitive .csv extension.
func CheckFormat(filename string) ValidationReport {
	if strings.EqualFold(path.Ext(filename), supportedExtension) {
		return ValidationReport{OK: true}
	}
	return ValidationReport{Reason: ReasonUnsupportedFormat}
}

// CheckColumns lists the required columns absent from header, in required order.
func CheckColumns(header, required []string) ValidationReport {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, col := range required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return ValidationReport{Reason: ReasonMissingColumns, Missing: missing}
	}
	return ValidationReport{OK: true}
}

// CheckTargets lists the names in targets that header already uses.
func CheckTargets(header, targets []string) ValidationReport {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var taken []string
	for _, col := range targets {
		if _, ok := present[col]; ok {
			taken = append(taken, col)
		}
	}
	if len(taken) > 0 {
		return ValidationReport{Reason: ReasonTargetColumnTaken, Conflicting: taken}
	}
	return ValidationReport{OK: true}
}
