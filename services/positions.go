package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"walkin-queue/config"
	"walkin-queue/monitoring"
	"walkin-queue/repositories"

	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

// PositionUpdater periodically recomputes each waiting ticket's position,
// caches it in Redis with a short TTL and pushes the update to the ticket
// holder's channel. Reads like WaitingAhead stay on the cache instead of
// hammering the database.
type PositionUpdater struct {
	Tickets repositories.TicketRepo
	Redis   *redis.Client
	PubNub  *pubnub.PubNub
	Config  *config.Config
}

func NewPositionUpdater(
	tickets repositories.TicketRepo,
	redisClient *redis.Client,
	pn *pubnub.PubNub,
	cfg *config.Config,
) *PositionUpdater {
	return &PositionUpdater{
		Tickets: tickets,
		Redis:   redisClient,
		PubNub:  pn,
		Config:  cfg,
	}
}

func (u *PositionUpdater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.Config.PositionUpdateInterval)
	defer ticker.Stop()

	log.Println("Position updater started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Position updater stopping")
			return
		case <-ticker.C:
			u.updateAll(ctx)
		}
	}
}

func (u *PositionUpdater) updateAll(ctx context.Context) {
	queueIDs, err := u.Redis.SMembers(ctx, "active_queues").Result()
	if err != nil {
		log.Printf("Error getting active queues: %v", err)
		return
	}

	for _, queueID := range queueIDs {
		u.updateQueue(ctx, queueID)
	}
}

func (u *PositionUpdater) updateQueue(ctx context.Context, queueID string) {
	waiting, err := u.Tickets.ListWaiting(ctx, queueID)
	if err != nil {
		log.Printf("Error listing waiting tickets for queue %s: %v", queueID, err)
		return
	}

	monitoring.SetWaitingLength(queueID, len(waiting))

	for i, t := range waiting {
		position := i + 1

		posKey := fmt.Sprintf("queue:position:%s:%s", queueID, t.ID)
		u.Redis.Set(ctx, posKey, position, u.Config.PositionCacheTTL)

		if u.PubNub == nil {
			continue
		}
		u.PubNub.Publish().
			Channel("ticket-" + t.ID).
			Message(map[string]any{
				"type":     "queue_position",
				"position": position,
				"queue_id": queueID,
				"number":   t.Number,
			}).
			Execute()
	}
}
