package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{StatusWaiting, StatusCalled, true},
		{StatusCalled, StatusCompleted, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusCalled, StatusWaiting, false},
		{StatusCompleted, StatusWaiting, false},
		{StatusCompleted, StatusCalled, false},
		{StatusWaiting, StatusWaiting, false},
		{StatusCalled, StatusCalled, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTicketStatus_IsValid(t *testing.T) {
	assert.True(t, StatusWaiting.IsValid())
	assert.True(t, StatusCalled.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.False(t, TicketStatus("serving").IsValid())
	assert.False(t, TicketStatus("").IsValid())
}

func TestTicket_JSONOmitsUnsetTimestamps(t *testing.T) {
	ticket := Ticket{
		ID:        "ticket-1",
		QueueID:   "queue-1",
		Number:    1,
		GroupSize: 2,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(ticket)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "called_at")
	assert.NotContains(t, string(data), "completed_at")

	var decoded Ticket
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StatusWaiting, decoded.Status)
	assert.Nil(t, decoded.CalledAt)
}
