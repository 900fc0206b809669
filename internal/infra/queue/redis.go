package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-portfolio-bot/internal/domain"
)

// RedisReportQueue реализует очередь задач доставки отчётов на базе Redis lists.
type RedisReportQueue struct {
	client *redis.Client
	key    string
}

// NewRedisReportQueue создаёт очередь по указанному ключу.
func NewRedisReportQueue(client *redis.Client, key string) *RedisReportQueue {
	return &RedisReportQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisReportQueue) Enqueue(ctx context.Context, job domain.ReportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisReportQueue) Pop(ctx context.Context) (domain.ReportJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ReportJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ReportJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ReportJob{}, err
		}
		if len(res) != 2 {
			return domain.ReportJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.ReportJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.ReportJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

var _ domain.ReportQueue = (*RedisReportQueue)(nil)
