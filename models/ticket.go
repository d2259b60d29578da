package models

import (
	"time"
)

type TicketStatus string

const (
	StatusWaiting   TicketStatus = "waiting"
	StatusCalled    TicketStatus = "called"
	StatusCompleted TicketStatus = "completed"
)

// transitions is the closed set of legal status changes. Anything not in
// this table is rejected; completed is terminal.
var transitions = map[TicketStatus]TicketStatus{
	StatusWaiting: StatusCalled,
	StatusCalled:  StatusCompleted,
}

func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	return transitions[s] == next
}

func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusCompleted:
		return true
	}
	return false
}

type Ticket struct {
	ID          string       `json:"id"`
	QueueID     string       `json:"queue_id"`
	Number      int          `json:"number"`
	GroupSize   int          `json:"group_size"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CalledAt    *time.Time   `json:"called_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
