package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/interlnkd/LibreTranslate/internal/models"
)

// WorkflowQueue hands translation jobs to a Cloud Workflows workflow. Each
// job becomes one execution, which calls the document-translator function
// and retries it on failure.
type WorkflowQueue struct {
	client *executions.Client
	parent string
}

// NewWorkflowQueue targets projects/<project>/locations/<location>/workflows/<workflowID>.
func NewWorkflowQueue(client *executions.Client, projectID, location, workflowID string) (*WorkflowQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("executions client must not be nil")
	}
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("projectID, location and workflowID must be provided")
	}
	return &WorkflowQueue{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// Enqueue starts an execution for req and returns the execution name.
func (q *WorkflowQueue) Enqueue(ctx context.Context, req models.TranslateDocumentRequest) (string, error) {
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	execution, err := q.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: q.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return execution.GetName(), nil
}

// Close releases the underlying client.
func (q *WorkflowQueue) Close() error {
	return q.client.Close()
}
