package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aidin1998/taskmanager/internal/config"
	"github.com/Aidin1998/taskmanager/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers task events to one sink.
type Publisher interface {
	Name() string
	PublishEvent(ctx context.Context, event *TaskEvent) error
	Close() error
}

// EventPublisher fans task events out to every configured sink
type EventPublisher struct {
	publishers []Publisher
	log        *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publishers []Publisher, log *zap.Logger) *EventPublisher {
	return &EventPublisher{
		publishers: publishers,
		log:        log.Named("events"),
	}
}

// FromConfig builds the sinks enabled in cfg. With none enabled the result
// publishes nothing.
func FromConfig(cfg config.EventsConfig, log *zap.Logger) *EventPublisher {
	var publishers []Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publishers = append(publishers, NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log))
	}
	if cfg.RedisAddr != "" {
		publishers = append(publishers, NewRedisPublisher(cfg.RedisAddr, cfg.RedisStream, log))
	}
	return NewEventPublisher(publishers, log)
}

// Publish sends event to every sink. Failures are logged and counted; an
// error is returned only when every sink failed.
func (p *EventPublisher) Publish(ctx context.Context, event *TaskEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if len(p.publishers) == 0 {
		return nil
	}

	var lastErr error
	successCount := 0

	for _, publisher := range p.publishers {
		if err := publisher.PublishEvent(ctx, event); err != nil {
			p.log.Error("failed to publish event",
				zap.String("sink", publisher.Name()),
				zap.String("event_type", string(event.Type)),
				zap.String("task_id", event.TaskID.String()),
				zap.Error(err),
			)
			metrics.EventPublishFailures.WithLabelValues(publisher.Name()).Inc()
			lastErr = err
		} else {
			successCount++
		}
	}

	p.log.Debug("published task event",
		zap.String("event_type", string(event.Type)),
		zap.String("task_id", event.TaskID.String()),
		zap.Int("publishers_success", successCount),
		zap.Int("publishers_total", len(p.publishers)),
	)

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("all publishers failed, last error: %w", lastErr)
	}
	return nil
}

// Close closes every sink.
func (p *EventPublisher) Close() error {
	var errs []error
	for _, publisher := range p.publishers {
		if err := publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", publisher.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close publishers: %v", errs)
	}
	return nil
}

// KafkaPublisher implements Publisher for Apache Kafka
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher creates a new Kafka publisher writing to topic
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
		},
		log: log,
	}
}

func (k *KafkaPublisher) Name() string { return "kafka" }

// PublishEvent writes event keyed by task id so a task's events stay ordered
func (k *KafkaPublisher) PublishEvent(ctx context.Context, event *TaskEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	k.log.Debug("publishing event to kafka",
		zap.String("topic", k.writer.Topic),
		zap.Int("event_size", len(eventData)),
	)

	msg := kafka.Message{
		Key:   []byte(event.TaskID.String()),
		Value: eventData,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID.String())},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to kafka: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// RedisPublisher implements Publisher for Redis Streams
type RedisPublisher struct {
	stream string
	client *redis.Client
	log    *zap.Logger
}

// NewRedisPublisher creates a new Redis publisher appending to stream
func NewRedisPublisher(addr, stream string, log *zap.Logger) *RedisPublisher {
	return NewRedisPublisherWithClient(redis.NewClient(&redis.Options{Addr: addr}), stream, log)
}

// NewRedisPublisherWithClient uses an existing client.
func NewRedisPublisherWithClient(client *redis.Client, stream string, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		stream: stream,
		client: client,
		log:    log,
	}
}

func (r *RedisPublisher) Name() string { return "redis" }

// PublishEvent appends event to the stream
func (r *RedisPublisher) PublishEvent(ctx context.Context, event *TaskEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		ID:     "*",
		Values: map[string]interface{}{
			"event_type": string(event.Type),
			"task_id":    event.TaskID.String(),
			"data":       string(eventData),
			"timestamp":  event.Timestamp.Format(time.RFC3339),
			"source":     "taskmanager",
		},
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish to redis stream: %w", err)
	}

	r.log.Debug("published event to redis stream",
		zap.String("stream", r.stream),
		zap.String("message_id", result.Val()))
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
