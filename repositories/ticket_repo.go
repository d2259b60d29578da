package repositories

import (
	"context"
	"fmt"
	"time"

	"walkin-queue/internal/status"
	"walkin-queue/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// TicketRepo is the persistence contract for tickets. The production
// implementation sits on the PocketBase record store; tests substitute an
// in-memory fake.
type TicketRepo interface {
	// Create persists the ticket and fills in ID and CreatedAt.
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	// MaxNumber returns the highest issued number for the queue, 0 if none.
	MaxNumber(ctx context.Context, queueID string) (int, error)
	// OldestWaiting returns the waiting ticket with the smallest number,
	// or nil when the waiting set is empty.
	OldestWaiting(ctx context.Context, queueID string) (*models.Ticket, error)
	// UpdateStatus transitions the ticket from one status to another. It
	// fails with status.ErrIllegalTransition when the stored status no
	// longer matches from.
	UpdateStatus(ctx context.Context, id string, from, to models.TicketStatus) (*models.Ticket, error)
	ListWaiting(ctx context.Context, queueID string) ([]*models.Ticket, error)
	// CountWaitingBefore counts waiting tickets in the queue with a number
	// smaller than the given one.
	CountWaitingBefore(ctx context.Context, queueID string, number int) (int, error)
	CountByStatus(ctx context.Context, queueID string, st models.TicketStatus) (int, error)
	DeleteByQueue(ctx context.Context, queueID string) error
}

type PBTicketRepo struct {
	app core.App
}

func NewTicketRepo(app core.App) *PBTicketRepo {
	return &PBTicketRepo{app: app}
}

func (r *PBTicketRepo) Create(ctx context.Context, t *models.Ticket) error {
	collection, err := r.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("queue", t.QueueID)
	record.Set("number", t.Number)
	record.Set("group_size", t.GroupSize)
	record.Set("status", string(t.Status))

	if err := r.app.Save(record); err != nil {
		return err
	}

	t.ID = record.Id
	t.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (r *PBTicketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := r.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, status.ErrTicketNotFound
	}
	return ticketFromRecord(record), nil
}

func (r *PBTicketRepo) MaxNumber(ctx context.Context, queueID string) (int, error) {
	var max int
	err := r.app.DB().
		NewQuery("SELECT COALESCE(MAX(number), 0) FROM tickets WHERE queue = {:queue}").
		Bind(dbx.Params{"queue": queueID}).
		Row(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *PBTicketRepo) OldestWaiting(ctx context.Context, queueID string) (*models.Ticket, error) {
	records, err := r.app.FindRecordsByFilter(
		"tickets",
		"queue = {:queue} && status = {:status}",
		"+number",
		1,
		0,
		dbx.Params{"queue": queueID, "status": string(models.StatusWaiting)},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return ticketFromRecord(records[0]), nil
}

func (r *PBTicketRepo) UpdateStatus(ctx context.Context, id string, from, to models.TicketStatus) (*models.Ticket, error) {
	var updated *models.Ticket

	err := r.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("tickets", id)
		if err != nil {
			return status.ErrTicketNotFound
		}

		current := models.TicketStatus(record.GetString("status"))
		if current != from || !current.CanTransitionTo(to) {
			return status.ErrIllegalTransition
		}

		record.Set("status", string(to))
		switch to {
		case models.StatusCalled:
			record.Set("called_at", types.NowDateTime())
		case models.StatusCompleted:
			record.Set("completed_at", types.NowDateTime())
		}

		if err := txApp.Save(record); err != nil {
			return err
		}

		updated = ticketFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PBTicketRepo) ListWaiting(ctx context.Context, queueID string) ([]*models.Ticket, error) {
	records, err := r.app.FindRecordsByFilter(
		"tickets",
		"queue = {:queue} && status = {:status}",
		"+number",
		0,
		0,
		dbx.Params{"queue": queueID, "status": string(models.StatusWaiting)},
	)
	if err != nil {
		return nil, err
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, record := range records {
		tickets = append(tickets, ticketFromRecord(record))
	}
	return tickets, nil
}

func (r *PBTicketRepo) CountWaitingBefore(ctx context.Context, queueID string, number int) (int, error) {
	var count int
	err := r.app.DB().
		NewQuery("SELECT COUNT(*) FROM tickets WHERE queue = {:queue} AND status = {:status} AND number < {:number}").
		Bind(dbx.Params{
			"queue":  queueID,
			"status": string(models.StatusWaiting),
			"number": number,
		}).
		Row(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PBTicketRepo) CountByStatus(ctx context.Context, queueID string, st models.TicketStatus) (int, error) {
	var count int
	err := r.app.DB().
		NewQuery("SELECT COUNT(*) FROM tickets WHERE queue = {:queue} AND status = {:status}").
		Bind(dbx.Params{"queue": queueID, "status": string(st)}).
		Row(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PBTicketRepo) DeleteByQueue(ctx context.Context, queueID string) error {
	// Bulk delete, mirroring the admin "reset line" action. Bypassing the
	// record API is fine here since tickets carry no files or cascades.
	_, err := r.app.DB().
		NewQuery("DELETE FROM tickets WHERE queue = {:queue}").
		Bind(dbx.Params{"queue": queueID}).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete tickets for queue %s: %w", queueID, err)
	}
	return nil
}

func ticketFromRecord(record *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:        record.Id,
		QueueID:   record.GetString("queue"),
		Number:    record.GetInt("number"),
		GroupSize: record.GetInt("group_size"),
		Status:    models.TicketStatus(record.GetString("status")),
		CreatedAt: record.GetDateTime("created").Time(),
	}
	if calledAt := record.GetDateTime("called_at"); !calledAt.IsZero() {
		t.CalledAt = timePtr(calledAt.Time())
	}
	if completedAt := record.GetDateTime("completed_at"); !completedAt.IsZero() {
		t.CompletedAt = timePtr(completedAt.Time())
	}
	return t
}

func timePtr(t time.Time) *time.Time {
	return &t
}
