package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"walkin-queue/config"
	"walkin-queue/internal/status"
	"walkin-queue/models"
	"walkin-queue/monitoring"
	"walkin-queue/repositories"
	"walkin-queue/utils"

	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

// TicketService owns the ticket lifecycle: issuance into the waiting set,
// calling the oldest (or a specific) waiting ticket, and completion.
// Mutations on the same queue are serialized through a per-queue mutex,
// so call-next hands each waiting ticket to exactly one caller.
type TicketService struct {
	Tickets   repositories.TicketRepo
	Queues    repositories.QueueRepo
	Numbering *NumberingService
	Redis     *redis.Client
	PubNub    *pubnub.PubNub
	Config    *config.Config

	breaker *utils.Breaker

	mu         sync.Mutex
	queueLocks map[string]*sync.Mutex
}

func NewTicketService(
	tickets repositories.TicketRepo,
	queues repositories.QueueRepo,
	numbering *NumberingService,
	redisClient *redis.Client,
	pn *pubnub.PubNub,
	cfg *config.Config,
) *TicketService {
	return &TicketService{
		Tickets:    tickets,
		Queues:     queues,
		Numbering:  numbering,
		Redis:      redisClient,
		PubNub:     pn,
		Config:     cfg,
		breaker:    utils.NewBreaker("pubnub", 5, 30*time.Second),
		queueLocks: make(map[string]*sync.Mutex),
	}
}

// Issue allocates the next number for the queue and creates the ticket in
// waiting state. Number allocation and the ticket insert happen inside the
// numbering critical section, so concurrent issuance yields exactly
// {1..N} with no duplicates.
func (s *TicketService) Issue(ctx context.Context, queueID string, groupSize int) (*models.Ticket, error) {
	if groupSize <= 0 {
		return nil, status.ErrInvalidGroupSize
	}

	exists, err := s.Queues.Exists(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, status.ErrUnknownQueue
	}

	t := &models.Ticket{
		QueueID:   queueID,
		GroupSize: groupSize,
		Status:    models.StatusWaiting,
	}

	_, err = s.Numbering.Allocate(ctx, queueID, func(number int) error {
		t.Number = number
		return s.Tickets.Create(ctx, t)
	})
	if err != nil {
		monitoring.TrackOperation("issue", queueID, "error")
		return nil, err
	}

	monitoring.TrackIssued(queueID)
	monitoring.TrackOperation("issue", queueID, "success")
	return t, nil
}

// CallNext hands the oldest waiting ticket to the caller and marks it
// called. Returns status.ErrNoneWaiting when the waiting set is empty.
func (s *TicketService) CallNext(ctx context.Context, queueID string) (*models.Ticket, error) {
	exists, err := s.Queues.Exists(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, status.ErrUnknownQueue
	}

	lock := s.queueLock(queueID)
	lock.Lock()
	defer lock.Unlock()

	next, err := s.Tickets.OldestWaiting(ctx, queueID)
	if err != nil {
		monitoring.TrackOperation("call_next", queueID, "error")
		return nil, err
	}
	if next == nil {
		return nil, status.ErrNoneWaiting
	}

	called, err := s.Tickets.UpdateStatus(ctx, next.ID, models.StatusWaiting, models.StatusCalled)
	if err != nil {
		monitoring.TrackOperation("call_next", queueID, "error")
		return nil, err
	}

	monitoring.TrackCalled(queueID)
	monitoring.TrackOperation("call_next", queueID, "success")
	s.notifyStatusChange(called)
	return called, nil
}

// Call marks a specific waiting ticket as called, out of number order.
func (s *TicketService) Call(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := s.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	lock := s.queueLock(t.QueueID)
	lock.Lock()
	defer lock.Unlock()

	called, err := s.Tickets.UpdateStatus(ctx, t.ID, models.StatusWaiting, models.StatusCalled)
	if err != nil {
		monitoring.TrackOperation("call", t.QueueID, "error")
		return nil, err
	}

	monitoring.TrackCalled(t.QueueID)
	monitoring.TrackOperation("call", t.QueueID, "success")
	s.notifyStatusChange(called)
	return called, nil
}

// Complete transitions a called ticket to its terminal completed state.
func (s *TicketService) Complete(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := s.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	lock := s.queueLock(t.QueueID)
	lock.Lock()
	defer lock.Unlock()

	completed, err := s.Tickets.UpdateStatus(ctx, t.ID, models.StatusCalled, models.StatusCompleted)
	if err != nil {
		monitoring.TrackOperation("complete", t.QueueID, "error")
		return nil, err
	}

	monitoring.TrackCompleted(t.QueueID)
	monitoring.TrackOperation("complete", t.QueueID, "success")
	s.notifyStatusChange(completed)
	return completed, nil
}

func (s *TicketService) Get(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.Tickets.GetByID(ctx, ticketID)
}

func (s *TicketService) ListWaiting(ctx context.Context, queueID string) ([]*models.Ticket, error) {
	exists, err := s.Queues.Exists(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, status.ErrUnknownQueue
	}
	return s.Tickets.ListWaiting(ctx, queueID)
}

// WaitingAhead reports how many waiting tickets precede the given one in
// its queue. It prefers the short-lived position cache maintained by the
// background updater and falls back to a fresh count.
func (s *TicketService) WaitingAhead(ctx context.Context, t *models.Ticket) (int, error) {
	if s.Redis != nil {
		posKey := fmt.Sprintf("queue:position:%s:%s", t.QueueID, t.ID)
		if position, err := s.Redis.Get(ctx, posKey).Int(); err == nil && position > 0 {
			return position - 1, nil
		}
	}
	return s.Tickets.CountWaitingBefore(ctx, t.QueueID, t.Number)
}

// QueueMetrics returns a snapshot of queue counters, cached in Redis for
// a short interval to keep dashboard polling off the database.
func (s *TicketService) QueueMetrics(ctx context.Context, queueID string) (*models.QueueMetrics, error) {
	exists, err := s.Queues.Exists(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, status.ErrUnknownQueue
	}

	metricsKey := "queue:metrics:" + queueID

	if s.Redis != nil {
		cached, err := s.Redis.HGetAll(ctx, metricsKey).Result()
		if err == nil && len(cached) > 0 {
			return metricsFromCache(queueID, cached), nil
		}
	}

	waiting, err := s.Tickets.CountByStatus(ctx, queueID, models.StatusWaiting)
	if err != nil {
		return nil, err
	}
	called, err := s.Tickets.CountByStatus(ctx, queueID, models.StatusCalled)
	if err != nil {
		return nil, err
	}
	lastNumber, err := s.Tickets.MaxNumber(ctx, queueID)
	if err != nil {
		return nil, err
	}

	m := &models.QueueMetrics{
		QueueID:      queueID,
		WaitingCount: waiting,
		CalledCount:  called,
		LastNumber:   lastNumber,
		LastUpdated:  time.Now(),
	}

	if s.Redis != nil {
		s.Redis.HSet(ctx, metricsKey,
			"waiting_count", m.WaitingCount,
			"called_count", m.CalledCount,
			"last_number", m.LastNumber,
			"last_updated", m.LastUpdated.Unix(),
		)
		s.Redis.Expire(ctx, metricsKey, s.Config.MetricsCacheTTL)
	}

	monitoring.SetWaitingLength(queueID, waiting)
	return m, nil
}

func (s *TicketService) queueLock(queueID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.queueLocks[queueID]
	if !ok {
		lock = &sync.Mutex{}
		s.queueLocks[queueID] = lock
	}
	return lock
}

// notifyStatusChange publishes the new status to the queue display channel
// and the ticket holder's channel. Delivery is best effort behind the
// circuit breaker; a broker outage never fails the operation itself.
func (s *TicketService) notifyStatusChange(t *models.Ticket) {
	if s.PubNub == nil {
		return
	}

	message := map[string]any{
		"type":      "ticket_status",
		"ticket_id": t.ID,
		"queue_id":  t.QueueID,
		"number":    t.Number,
		"status":    string(t.Status),
	}

	for _, channel := range []string{"queue-" + t.QueueID, "ticket-" + t.ID} {
		err := s.breaker.Do(func() error {
			_, _, err := s.PubNub.Publish().
				Channel(channel).
				Message(message).
				Execute()
			return err
		})
		if err != nil {
			log.Printf("Failed to publish status of ticket %s to %s: %v", t.ID, channel, err)
		}
	}
}

func metricsFromCache(queueID string, cached map[string]string) *models.QueueMetrics {
	m := &models.QueueMetrics{QueueID: queueID}
	m.WaitingCount = atoiOrZero(cached["waiting_count"])
	m.CalledCount = atoiOrZero(cached["called_count"])
	m.LastNumber = atoiOrZero(cached["last_number"])
	if ts := atoiOrZero(cached["last_updated"]); ts > 0 {
		m.LastUpdated = time.Unix(int64(ts), 0)
	}
	return m
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
