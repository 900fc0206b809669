package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

const defaultPollInterval = time.Second

// RabbitReportQueue реализует очередь задач доставки отчётов через AMQP.
type RabbitReportQueue struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	queue        string
	pollInterval time.Duration
}

// NewRabbitReportQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitReportQueue(amqpURL, queue string) (*RabbitReportQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitReportQueue{
		conn:         conn,
		ch:           ch,
		queue:        queue,
		pollInterval: defaultPollInterval,
	}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitReportQueue) Enqueue(ctx context.Context, job domain.ReportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RabbitReportQueue) Pop(ctx context.Context) (domain.ReportJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ReportJob{}, err
		}
		start := time.Now()
		delivery, ok, err := q.ch.Get(q.queue, true)
		metrics.ObserveNetworkRequest("rabbitmq", "get", q.queue, start, err)
		if err != nil {
			return domain.ReportJob{}, fmt.Errorf("fetch job: %w", err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return domain.ReportJob{}, ctx.Err()
			case <-time.After(q.pollInterval):
			}
			continue
		}
		var job domain.ReportJob
		if err := json.Unmarshal(delivery.Body, &job); err != nil {
			return domain.ReportJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitReportQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ domain.ReportQueue = (*RabbitReportQueue)(nil)
