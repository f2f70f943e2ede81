package alert

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/intentlens/intentlens/internal/config"
	"github.com/intentlens/intentlens/internal/insights"
)

// Publisher forwards high-severity friction patterns to Kafka for downstream
// alerting. Returns nil when no brokers or alerts topic are configured.
type Publisher struct {
	writer      *kafka.Writer
	minSeverity float64
}

// NewPublisher creates a publisher when Kafka alerting is configured.
func NewPublisher(kafkaCfg config.KafkaConfig, alertsCfg config.AlertsConfig) *Publisher {
	topic, ok := kafkaCfg.Topics["alerts"]
	if !ok || len(kafkaCfg.Brokers) == 0 {
		return nil
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kafkaCfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              1,
		BatchTimeout:           time.Millisecond * 10,
		Async:                  true, // alerting must not block analysis
		AllowAutoTopicCreation: true,
	}
	log.Info().Str("topic", topic).Msg("Kafka alert writer initialized")

	return &Publisher{
		writer:      writer,
		minSeverity: alertsCfg.MinSeverity,
	}
}

// PublishPatterns sends one message per pattern at or above the severity
// floor, keyed by session id.
func (p *Publisher) PublishPatterns(ctx context.Context, sessionID string, patterns []insights.FrictionPattern) {
	if p == nil {
		return
	}

	for _, pattern := range patterns {
		if pattern.Severity < p.minSeverity {
			continue
		}

		payload := map[string]any{
			"session_id":   sessionID,
			"pattern_type": pattern.PatternType,
			"severity":     pattern.Severity,
			"description":  pattern.Description,
			"event_id":     pattern.EventID,
			"timestamp":    pattern.Timestamp,
			"published_at": time.Now().UnixMilli(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal alert")
			continue
		}

		if err := p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(sessionID),
			Value: data,
		}); err != nil {
			log.Error().Err(err).Str("pattern_type", pattern.PatternType).Msg("Failed to publish alert")
		}
	}
}

// Close flushes and closes the writer.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close alert writer")
	}
}
