package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Job statuses recorded on the TranslationJob document as a job moves through the pipeline.
const (
	StatusQueued      = "QUEUED"
	StatusFetching    = "FETCHING"
	StatusValidating  = "VALIDATING"
	StatusTranslating = "TRANSLATING"
	StatusPersisting  = "PERSISTING"
	StatusRetiring    = "RETIRING"
	StatusDone        = "DONE"
	StatusRejected    = "REJECTED"
	StatusFailed      = "FAILED"
	StatusSkipped     = "SKIPPED"
)

// TranslationJob is the Firestore record for one pending document.
// It tracks the job's lifecycle and where the document ended up.
type TranslationJob struct {
	SourceKey    string    `firestore:"sourceKey,omitempty"`
	Generation   string    `firestore:"generation,omitempty"`
	Market       string    `firestore:"market,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	OutputKey    string    `firestore:"outputKey,omitempty"`
	RowCount     int       `firestore:"rowCount,omitempty"`
	ExecutionID  string    `firestore:"executionId,omitempty"` // workflow execution that owns the job
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}

// JobID derives a stable document ID from an object key and its generation,
// so a replayed storage event maps onto the same job while a re-upload gets a new one.
func JobID(key, generation string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%s", key, generation)))
	return hex.EncodeToString(sum[:])
}

// StatusUpdate is one transition written onto a TranslationJob. Empty fields
// are left as they are on the stored record.
type StatusUpdate struct {
	Status       string
	SourceKey    string
	Market       string
	ErrorDetails string
	OutputKey    string
	RowCount     int
}

// Fields returns the update as a Firestore merge map.
func (u StatusUpdate) Fields(now time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"status":    u.Status,
		"updatedAt": now,
	}
	if u.SourceKey != "" {
		fields["sourceKey"] = u.SourceKey
	}
	if u.Market != "" {
		fields["market"] = u.Market
	}
	if u.ErrorDetails != "" {
		fields["errorDetails"] = u.ErrorDetails
	}
	if u.OutputKey != "" {
		fields["outputKey"] = u.OutputKey
	}
	if u.RowCount > 0 {
		fields["rowCount"] = u.RowCount
	}
	return fields
}
