package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued per queue",
		},
		[]string{"queue_id"},
	)

	ticketsCalled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_called_total",
			Help: "Total tickets called per queue",
		},
		[]string{"queue_id"},
	)

	ticketsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_completed_total",
			Help: "Total tickets completed per queue",
		},
		[]string{"queue_id"},
	)

	waitingLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_waiting_length",
			Help: "Current number of waiting tickets per queue",
		},
		[]string{"queue_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue operations by result",
		},
		[]string{"operation", "queue_id", "result"},
	)
)

func TrackIssued(queueID string)    { ticketsIssued.WithLabelValues(queueID).Inc() }
func TrackCalled(queueID string)    { ticketsCalled.WithLabelValues(queueID).Inc() }
func TrackCompleted(queueID string) { ticketsCompleted.WithLabelValues(queueID).Inc() }

func SetWaitingLength(queueID string, n int) {
	waitingLength.WithLabelValues(queueID).Set(float64(n))
}

// TrackOperation records the outcome of a queue operation; result is
// "success" or "error".
func TrackOperation(operation, queueID, result string) {
	queueOperations.WithLabelValues(operation, queueID, result).Inc()
}

// Monitor periodically refreshes the waiting-length gauges from the
// cached queue metrics in Redis.
type Monitor struct {
	redis    *redis.Client
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{redis: redisClient, interval: interval}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	queueIDs, err := m.redis.SMembers(ctx, "active_queues").Result()
	if err != nil {
		return
	}

	for _, queueID := range queueIDs {
		count, err := m.redis.HGet(ctx, "queue:metrics:"+queueID, "waiting_count").Int()
		if err != nil {
			continue
		}
		SetWaitingLength(queueID, count)
	}
}
