package handlers

import (
	"net/http"

	"walkin-queue/services"

	"github.com/pocketbase/pocketbase/core"
)

type QueueHandler struct {
	queues  *services.QueueService
	tickets *services.TicketService
}

func NewQueueHandler(queues *services.QueueService, tickets *services.TicketService) *QueueHandler {
	return &QueueHandler{
		queues:  queues,
		tickets: tickets,
	}
}

// List - all queues
func (h *QueueHandler) List(e *core.RequestEvent) error {
	queues, err := h.queues.ListQueues(e.Request.Context())
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, queues)
}

// Metrics - cached counters for one queue
func (h *QueueHandler) Metrics(e *core.RequestEvent) error {
	queueID := e.Request.PathValue("queueId")

	metrics, err := h.tickets.QueueMetrics(e.Request.Context(), queueID)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, metrics)
}
