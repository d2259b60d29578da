package services

import (
	"context"
	"sync"

	"walkin-queue/repositories"
)

// NumberingService hands out the next ticket number for a queue: a single
// strictly increasing sequence per queue, starting at 1, with no gaps and
// no duplicates under concurrent issuance.
//
// Each queue has its own counter behind its own mutex, so issuance on one
// queue never blocks another. Counters are seeded lazily from the highest
// persisted number, never from memory, which makes a process restart safe:
// the first allocation after a restart continues where the stored tickets
// left off.
type NumberingService struct {
	repo repositories.TicketRepo

	mu       sync.Mutex
	counters map[string]*queueCounter
}

type queueCounter struct {
	mu     sync.Mutex
	seeded bool
	last   int
}

func NewNumberingService(repo repositories.TicketRepo) *NumberingService {
	return &NumberingService{
		repo:     repo,
		counters: make(map[string]*queueCounter),
	}
}

// Allocate reserves the next number for the queue and calls persist with
// it while still holding the queue's critical section. The counter only
// advances after persist succeeds, so a failed write never burns a number
// and the sequence stays gap-free. The persisted row is the durability
// point: once persist returns nil the number can never be reissued, even
// if this process dies before the caller sees the result.
func (s *NumberingService) Allocate(ctx context.Context, queueID string, persist func(number int) error) (int, error) {
	c := s.counter(queueID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seeded {
		last, err := s.repo.MaxNumber(ctx, queueID)
		if err != nil {
			return 0, err
		}
		c.last = last
		c.seeded = true
	}

	number := c.last + 1
	if err := persist(number); err != nil {
		return 0, err
	}

	c.last = number
	return number, nil
}

// Reset forgets the in-memory counter for a queue. The next allocation
// reseeds from storage; callers purge the queue's tickets first so the
// sequence restarts at 1.
func (s *NumberingService) Reset(queueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, queueID)
}

func (s *NumberingService) counter(queueID string) *queueCounter {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[queueID]
	if !ok {
		c = &queueCounter{}
		s.counters[queueID] = c
	}
	return c
}
