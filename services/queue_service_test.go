package services

import (
	"context"
	"testing"

	"walkin-queue/internal/status"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueueService(queueIDs ...string) (*QueueService, redismock.ClientMock) {
	tickets := newMemTicketRepo()
	queues := newMemQueueRepo(queueIDs...)
	numbering := NewNumberingService(tickets)

	db, mock := redismock.NewClientMock()
	service := NewQueueService(queues, tickets, numbering, db)
	return service, mock
}

func TestQueueService_CreateQueue(t *testing.T) {
	service, mock := setupQueueService()

	mock.ExpectSAdd("active_queues", "queue-01").SetVal(1)

	queue, err := service.CreateQueue(context.Background(), "front desk")
	require.NoError(t, err)

	assert.Equal(t, "queue-01", queue.ID)
	assert.Equal(t, "front desk", queue.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueService_CreateQueue_EmptyName(t *testing.T) {
	service, _ := setupQueueService()

	_, err := service.CreateQueue(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidQueueName)
}

func TestQueueService_ResetQueue_UnknownQueue(t *testing.T) {
	service, _ := setupQueueService()

	err := service.ResetQueue(context.Background(), "no-such-queue")
	assert.ErrorIs(t, err, status.ErrUnknownQueue)
}

func TestQueueService_ResetQueueRestartsNumberingAtOne(t *testing.T) {
	service, mock := setupQueueService("queue-a")
	ctx := context.Background()

	// Three issued tickets, then a reset
	for i := 1; i <= 3; i++ {
		_, err := service.Numbering.Allocate(ctx, "queue-a", func(number int) error {
			return service.Tickets.Create(ctx, newWaitingTicket("queue-a", number))
		})
		require.NoError(t, err)
	}

	mock.ExpectDel("queue:metrics:queue-a").SetVal(1)
	mock.ExpectKeys("queue:position:queue-a:*").SetVal([]string{})

	require.NoError(t, service.ResetQueue(ctx, "queue-a"))

	waiting, err := service.Tickets.ListWaiting(ctx, "queue-a")
	require.NoError(t, err)
	assert.Empty(t, waiting)

	number, err := service.Numbering.Allocate(ctx, "queue-a", func(number int) error {
		return service.Tickets.Create(ctx, newWaitingTicket("queue-a", number))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueService_SyncActiveQueues(t *testing.T) {
	service, mock := setupQueueService("queue-a", "queue-b")

	mock.ExpectSAdd("active_queues", "queue-a").SetVal(1)
	mock.ExpectSAdd("active_queues", "queue-b").SetVal(1)

	require.NoError(t, service.SyncActiveQueues(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
