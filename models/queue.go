package models

import (
	"time"
)

type Queue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type QueueMetrics struct {
	QueueID      string    `json:"queue_id"`
	WaitingCount int       `json:"waiting_count"`
	CalledCount  int       `json:"called_count"`
	LastNumber   int       `json:"last_number"`
	LastUpdated  time.Time `json:"last_updated"`
}
