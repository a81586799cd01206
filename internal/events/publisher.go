package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/importer"
)

// Event types published on the catalog import channel.
const (
	ImportStarted   = "catalog.import.started"
	ImportCompleted = "catalog.import.completed"
	ImportFailed    = "catalog.import.failed"

	channel = "catalog.import"
)

// ImportEvent is the payload published for import lifecycle transitions.
// Downstream consumers (search indexer, storefront cache) react to
// completed imports.
type ImportEvent struct {
	EventType   string              `json:"eventType"`
	JobID       string              `json:"jobId,omitempty"`
	BrandID     string              `json:"brandId,omitempty"`
	Mode        string              `json:"mode"`
	FileName    string              `json:"fileName"`
	ActorID     string              `json:"actorId,omitempty"`
	Totals      *importer.JobTotals `json:"totals,omitempty"`
	Error       string              `json:"error,omitempty"`
	SyncMode    bool                `json:"syncMode"`
	PublishedAt time.Time           `json:"publishedAt"`
}

// Publisher pushes import lifecycle events over Redis pub/sub. A nil
// Publisher or one without a Redis client is a no-op, so imports never
// depend on the event bus being up.
type Publisher struct {
	redis  *redis.Client
	logger *logrus.Entry
}

func NewPublisher(client *redis.Client, logger *logrus.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.WithField("component", "catalog-events"),
	}
}

// PublishImportStarted publishes a catalog.import.started event.
func (p *Publisher) PublishImportStarted(ctx context.Context, jobID uuid.UUID, mode, fileName, actorID string, brandID *uuid.UUID, syncMode bool) {
	event := &ImportEvent{
		EventType: ImportStarted,
		Mode:      mode,
		FileName:  fileName,
		ActorID:   actorID,
		SyncMode:  syncMode,
	}
	if jobID != uuid.Nil {
		event.JobID = jobID.String()
	}
	if brandID != nil {
		event.BrandID = brandID.String()
	}
	p.publish(event)
}

// PublishImportCompleted publishes a catalog.import.completed event with the
// final counts.
func (p *Publisher) PublishImportCompleted(ctx context.Context, jobID uuid.UUID, mode, fileName string, brandID *uuid.UUID, totals importer.JobTotals) {
	event := &ImportEvent{
		EventType: ImportCompleted,
		JobID:     jobID.String(),
		Mode:      mode,
		FileName:  fileName,
		Totals:    &totals,
	}
	if brandID != nil {
		event.BrandID = brandID.String()
	}
	p.publish(event)
}

// PublishImportFailed publishes a catalog.import.failed event.
func (p *Publisher) PublishImportFailed(ctx context.Context, jobID uuid.UUID, mode, fileName string, brandID *uuid.UUID, importErr error) {
	event := &ImportEvent{
		EventType: ImportFailed,
		Mode:      mode,
		FileName:  fileName,
	}
	if jobID != uuid.Nil {
		event.JobID = jobID.String()
	}
	if importErr != nil {
		event.Error = importErr.Error()
	}
	if brandID != nil {
		event.BrandID = brandID.String()
	}
	p.publish(event)
}

// publish fires the event asynchronously so publishing never blocks or fails
// the import itself.
func (p *Publisher) publish(event *ImportEvent) {
	if p == nil || p.redis == nil {
		return
	}
	event.PublishedAt = time.Now().UTC()

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to encode import event")
			return
		}

		if err := p.redis.Publish(pubCtx, channel, payload).Err(); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"jobId":     event.JobID,
			}).WithError(err).Error("Failed to publish import event")
			return
		}

		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"jobId":     event.JobID,
		}).Info("Import event published")
	}()
}
