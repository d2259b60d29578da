package handlers

import (
	"errors"
	"net/http"

	"walkin-queue/internal/status"
	"walkin-queue/models"
	"walkin-queue/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	tickets *services.TicketService
}

func NewTicketHandler(tickets *services.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// Issue - hand out the next ticket in a queue
func (h *TicketHandler) Issue(e *core.RequestEvent) error {
	var req struct {
		QueueID   string `json:"queue_id"`
		GroupSize int    `json:"group_size"`
	}

	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ticket, err := h.tickets.Issue(e.Request.Context(), req.QueueID, req.GroupSize)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusCreated, ticket)
}

// Get - ticket details plus how many parties are still ahead of it
func (h *TicketHandler) Get(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	ticket, err := h.tickets.Get(e.Request.Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	ahead, err := h.tickets.WaitingAhead(e.Request.Context(), ticket)
	if err != nil {
		ahead = 0
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket":        ticket,
		"waiting_ahead": ahead,
	})
}

// CallNext - call the oldest waiting ticket of a queue
func (h *TicketHandler) CallNext(e *core.RequestEvent) error {
	queueID := e.Request.PathValue("queueId")

	ticket, err := h.tickets.CallNext(e.Request.Context(), queueID)
	if errors.Is(err, status.ErrNoneWaiting) {
		// Empty queue is a normal outcome, not an error
		return e.JSON(http.StatusOK, map[string]any{
			"ticket":  nil,
			"message": "No tickets waiting",
		})
	}
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"ticket": ticket})
}

// Call - call a specific waiting ticket out of order
func (h *TicketHandler) Call(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	ticket, err := h.tickets.Call(e.Request.Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// Complete - finish serving a called ticket
func (h *TicketHandler) Complete(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	ticket, err := h.tickets.Complete(e.Request.Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// ListWaiting - the queue's waiting set in calling order
func (h *TicketHandler) ListWaiting(e *core.RequestEvent) error {
	queueID := e.Request.PathValue("queueId")

	tickets, err := h.tickets.ListWaiting(e.Request.Context(), queueID)
	if err != nil {
		return mapServiceError(err)
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}

	return e.JSON(http.StatusOK, tickets)
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, status.ErrUnknownQueue):
		return apis.NewNotFoundError("Unknown queue", err)
	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", err)
	case errors.Is(err, status.ErrInvalidGroupSize):
		return apis.NewBadRequestError("Group size must be positive", err)
	case errors.Is(err, status.ErrIllegalTransition):
		return apis.NewApiError(http.StatusConflict, "Illegal status transition", err)
	case errors.Is(err, services.ErrInvalidQueueName):
		return apis.NewBadRequestError("Queue name must not be empty", err)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}
