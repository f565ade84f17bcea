package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"notification-workers/internal/common/logger"
)

const defaultIndex = "notification-deliveries"

// DeliveryOutcome is the audit document written after each delivery
// attempt resolves, successfully or not.
type DeliveryOutcome struct {
	MessageID     string    `json:"message_id"`
	UserID        string    `json:"user_id,omitempty"`
	TemplateID    string    `json:"template_id"`
	Recipient     string    `json:"recipient"`
	Channel       string    `json:"channel"`
	Language      string    `json:"language,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	RetryCount    int       `json:"retry_count"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// Indexer writes delivery outcomes to Elasticsearch. Audit writes are best
// effort; the delivery result never depends on them.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = defaultIndex
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log,
	}
}

// Record indexes one outcome. The caller decides whether a failure is worth
// more than a log line; delivery handlers just log it.
func (i *Indexer) Record(ctx context.Context, outcome DeliveryOutcome) error {
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal delivery outcome: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("index delivery outcome: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index delivery outcome: %s", res.String())
	}

	i.logger.Debug("Delivery outcome indexed", map[string]interface{}{
		"message_id": outcome.MessageID,
		"status":     outcome.Status,
	})
	return nil
}
