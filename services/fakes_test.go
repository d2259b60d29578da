package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"walkin-queue/internal/status"
	"walkin-queue/models"
)

// memTicketRepo is an in-memory TicketRepo with the same guard semantics
// as the PocketBase-backed one.
type memTicketRepo struct {
	mu        sync.Mutex
	seq       int
	tickets   map[string]*models.Ticket
	createErr error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*models.Ticket)}
}

func (r *memTicketRepo) Create(ctx context.Context, t *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}

	r.seq++
	t.ID = fmt.Sprintf("ticket-%04d", r.seq)
	t.CreatedAt = time.Now()

	stored := *t
	r.tickets[t.ID] = &stored
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) MaxNumber(ctx context.Context, queueID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	max := 0
	for _, t := range r.tickets {
		if t.QueueID == queueID && t.Number > max {
			max = t.Number
		}
	}
	return max, nil
}

func (r *memTicketRepo) OldestWaiting(ctx context.Context, queueID string) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *models.Ticket
	for _, t := range r.tickets {
		if t.QueueID != queueID || t.Status != models.StatusWaiting {
			continue
		}
		if oldest == nil || t.Number < oldest.Number {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (r *memTicketRepo) UpdateStatus(ctx context.Context, id string, from, to models.TicketStatus) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	if t.Status != from || !t.Status.CanTransitionTo(to) {
		return nil, status.ErrIllegalTransition
	}

	now := time.Now()
	t.Status = to
	switch to {
	case models.StatusCalled:
		t.CalledAt = &now
	case models.StatusCompleted:
		t.CompletedAt = &now
	}

	copied := *t
	return &copied, nil
}

func (r *memTicketRepo) ListWaiting(ctx context.Context, queueID string) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var waiting []*models.Ticket
	for _, t := range r.tickets {
		if t.QueueID == queueID && t.Status == models.StatusWaiting {
			copied := *t
			waiting = append(waiting, &copied)
		}
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].Number < waiting[j].Number })
	return waiting, nil
}

func (r *memTicketRepo) CountWaitingBefore(ctx context.Context, queueID string, number int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, t := range r.tickets {
		if t.QueueID == queueID && t.Status == models.StatusWaiting && t.Number < number {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) CountByStatus(ctx context.Context, queueID string, st models.TicketStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, t := range r.tickets {
		if t.QueueID == queueID && t.Status == st {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) DeleteByQueue(ctx context.Context, queueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tickets {
		if t.QueueID == queueID {
			delete(r.tickets, id)
		}
	}
	return nil
}

func newWaitingTicket(queueID string, number int) *models.Ticket {
	return &models.Ticket{
		QueueID:   queueID,
		Number:    number,
		GroupSize: 1,
		Status:    models.StatusWaiting,
	}
}

type memQueueRepo struct {
	mu     sync.Mutex
	seq    int
	queues map[string]*models.Queue
}

func newMemQueueRepo(ids ...string) *memQueueRepo {
	r := &memQueueRepo{queues: make(map[string]*models.Queue)}
	for _, id := range ids {
		r.queues[id] = &models.Queue{ID: id, Name: id, CreatedAt: time.Now()}
	}
	return r
}

func (r *memQueueRepo) Create(ctx context.Context, name string) (*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	queue := &models.Queue{
		ID:        fmt.Sprintf("queue-%02d", r.seq),
		Name:      name,
		CreatedAt: time.Now(),
	}
	r.queues[queue.ID] = queue

	copied := *queue
	return &copied, nil
}

func (r *memQueueRepo) GetByID(ctx context.Context, id string) (*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, ok := r.queues[id]
	if !ok {
		return nil, status.ErrUnknownQueue
	}
	copied := *queue
	return &copied, nil
}

func (r *memQueueRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.queues[id]
	return ok, nil
}

func (r *memQueueRepo) List(ctx context.Context) ([]*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queues := make([]*models.Queue, 0, len(r.queues))
	for _, queue := range r.queues {
		copied := *queue
		queues = append(queues, &copied)
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].ID < queues[j].ID })
	return queues, nil
}
