package handlers

import (
	"net/http"

	"walkin-queue/models"
	"walkin-queue/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	queues  *services.QueueService
	tickets *services.TicketService
}

func NewAdminHandler(queues *services.QueueService, tickets *services.TicketService) *AdminHandler {
	return &AdminHandler{
		queues:  queues,
		tickets: tickets,
	}
}

// CreateQueue - open a new waiting line
func (h *AdminHandler) CreateQueue(e *core.RequestEvent) error {
	var req struct {
		Name string `json:"name"`
	}

	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	queue, err := h.queues.CreateQueue(e.Request.Context(), req.Name)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusCreated, queue)
}

// ResetQueue - purge a line's tickets and restart numbering at 1
func (h *AdminHandler) ResetQueue(e *core.RequestEvent) error {
	queueID := e.Request.PathValue("queueId")

	if err := h.queues.ResetQueue(e.Request.Context(), queueID); err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Queue reset"})
}

// Dashboard - metrics for every queue
func (h *AdminHandler) Dashboard(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	queues, err := h.queues.ListQueues(ctx)
	if err != nil {
		return mapServiceError(err)
	}

	dashboard := make([]map[string]any, 0, len(queues))
	for _, queue := range queues {
		entry := map[string]any{
			"queue_id":   queue.ID,
			"queue_name": queue.Name,
		}

		metrics, err := h.tickets.QueueMetrics(ctx, queue.ID)
		if err != nil {
			metrics = &models.QueueMetrics{QueueID: queue.ID}
		}
		entry["waiting_count"] = metrics.WaitingCount
		entry["called_count"] = metrics.CalledCount
		entry["last_number"] = metrics.LastNumber

		dashboard = append(dashboard, entry)
	}

	return e.JSON(http.StatusOK, dashboard)
}
