package models

// These structs define the JSON payloads exchanged between the storage
// trigger, the queue workflow and the translation function.

// GCSEvent is the data of a Cloud Storage object event.
type GCSEvent struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation string `json:"generation"`
}

// TranslateDocumentRequest is one queued job: a pending document and its market.
type TranslateDocumentRequest struct {
	JobID       string `json:"jobId"`
	Key         string `json:"key"`
	Market      string `json:"market"`
	ExecutionID string `json:"executionId"`
}

// TranslateDocumentResponse is the output of the document-translator function.
type TranslateDocumentResponse struct {
	Status      string   `json:"status"`
	SourceKey   string   `json:"sourceKey"`
	Market      string   `json:"market"`
	OutputKey   string   `json:"outputKey,omitempty"`
	FailedKey   string   `json:"failedKey,omitempty"`
	Missing     []string `json:"missingColumns,omitempty"`
	Conflicting []string `json:"conflictingColumns,omitempty"`
	RowCount    int      `json:"rowCount,omitempty"`
}

// SweepPendingRequest is the input for the pending-sweeper function.
type SweepPendingRequest struct {
	// Market limits the sweep to one market folder. Empty sweeps all markets.
	Market string `json:"market"`
	// Force re-dispatches documents whose generation already has a job,
	// for recovering jobs whose workflow execution was lost.
	Force bool `json:"force"`
}

// SweepPendingResponse is the output of the pending-sweeper function.
type SweepPendingResponse struct {
	Status     string `json:"status"`
	Found      int    `json:"found"`
	Dispatched int    `json:"dispatched"`
	Skipped    int    `json:"skipped"`
}
