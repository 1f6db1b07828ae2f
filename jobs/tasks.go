package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/relatio-crm/relatio/internal/storage"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDocumentPurge removes blobs whose document rows were deleted.
	TaskDocumentPurge = "documents:purge"
)

// DocumentPurgePayload lists the opaque blob paths to remove.
type DocumentPurgePayload struct {
	Paths []string `json:"paths"`
}

// NewDocumentPurgeTask constructs an Asynq task.
func NewDocumentPurgeTask(payload DocumentPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentPurge, data), nil
}

// NewDocumentPurgeHandler processes TaskDocumentPurge tasks against the
// blob store. A path that fails to delete fails the task so Asynq retries.
func NewDocumentPurgeHandler(blobs storage.BlobStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DocumentPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		for _, path := range payload.Paths {
			if err := blobs.Remove(ctx, path); err != nil {
				if logger != nil {
					logger.Error("purge blob", slog.Any("error", err), slog.String("path", path))
				}
				return err
			}
		}
		if logger != nil {
			logger.Info("purged blobs", slog.Int("count", len(payload.Paths)))
		}
		return nil
	}
}
