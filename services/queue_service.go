package services

import (
	"context"
	"errors"
	"log"

	"walkin-queue/internal/status"
	"walkin-queue/models"
	"walkin-queue/repositories"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidQueueName rejects queue creation with an empty name.
var ErrInvalidQueueName = errors.New("queue: name must not be empty")

// QueueService manages the waiting lines themselves: creation, listing
// and the admin reset that restarts a line's numbering at 1.
type QueueService struct {
	Queues    repositories.QueueRepo
	Tickets   repositories.TicketRepo
	Numbering *NumberingService
	Redis     *redis.Client
}

func NewQueueService(
	queues repositories.QueueRepo,
	tickets repositories.TicketRepo,
	numbering *NumberingService,
	redisClient *redis.Client,
) *QueueService {
	return &QueueService{
		Queues:    queues,
		Tickets:   tickets,
		Numbering: numbering,
		Redis:     redisClient,
	}
}

func (s *QueueService) CreateQueue(ctx context.Context, name string) (*models.Queue, error) {
	if name == "" {
		return nil, ErrInvalidQueueName
	}

	queue, err := s.Queues.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.SAdd(ctx, "active_queues", queue.ID).Err(); err != nil {
			log.Printf("Failed to register queue %s as active: %v", queue.ID, err)
		}
	}

	return queue, nil
}

func (s *QueueService) GetQueue(ctx context.Context, queueID string) (*models.Queue, error) {
	return s.Queues.GetByID(ctx, queueID)
}

func (s *QueueService) ListQueues(ctx context.Context) ([]*models.Queue, error) {
	return s.Queues.List(ctx)
}

// ResetQueue deletes every ticket of the queue and restarts its numbering
// at 1. Cached positions and metrics for the queue are dropped alongside.
func (s *QueueService) ResetQueue(ctx context.Context, queueID string) error {
	exists, err := s.Queues.Exists(ctx, queueID)
	if err != nil {
		return err
	}
	if !exists {
		return status.ErrUnknownQueue
	}

	if err := s.Tickets.DeleteByQueue(ctx, queueID); err != nil {
		return err
	}
	s.Numbering.Reset(queueID)

	if s.Redis != nil {
		s.Redis.Del(ctx, "queue:metrics:"+queueID)

		keys, err := s.Redis.Keys(ctx, "queue:position:"+queueID+":*").Result()
		if err == nil && len(keys) > 0 {
			s.Redis.Del(ctx, keys...)
		}
	}

	log.Printf("Queue %s reset, numbering restarts at 1", queueID)
	return nil
}

// SyncActiveQueues seeds the active_queues set from storage, so the
// background updaters pick every line up again after a restart.
func (s *QueueService) SyncActiveQueues(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}

	queues, err := s.Queues.List(ctx)
	if err != nil {
		return err
	}

	for _, queue := range queues {
		if err := s.Redis.SAdd(ctx, "active_queues", queue.ID).Err(); err != nil {
			return err
		}
	}

	log.Printf("Synced %d queues to active set", len(queues))
	return nil
}
