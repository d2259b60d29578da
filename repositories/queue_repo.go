package repositories

import (
	"context"

	"walkin-queue/internal/status"
	"walkin-queue/models"

	"github.com/pocketbase/pocketbase/core"
)

type QueueRepo interface {
	Create(ctx context.Context, name string) (*models.Queue, error)
	GetByID(ctx context.Context, id string) (*models.Queue, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*models.Queue, error)
}

type PBQueueRepo struct {
	app core.App
}

func NewQueueRepo(app core.App) *PBQueueRepo {
	return &PBQueueRepo{app: app}
}

func (r *PBQueueRepo) Create(ctx context.Context, name string) (*models.Queue, error) {
	collection, err := r.app.FindCollectionByNameOrId("queues")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("name", name)

	if err := r.app.Save(record); err != nil {
		return nil, err
	}

	return queueFromRecord(record), nil
}

func (r *PBQueueRepo) GetByID(ctx context.Context, id string) (*models.Queue, error) {
	record, err := r.app.FindRecordById("queues", id)
	if err != nil {
		return nil, status.ErrUnknownQueue
	}
	return queueFromRecord(record), nil
}

func (r *PBQueueRepo) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := r.app.FindRecordById("queues", id); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *PBQueueRepo) List(ctx context.Context) ([]*models.Queue, error) {
	records, err := r.app.FindRecordsByFilter("queues", "id != ''", "+created", 0, 0)
	if err != nil {
		return nil, err
	}

	queues := make([]*models.Queue, 0, len(records))
	for _, record := range records {
		queues = append(queues, queueFromRecord(record))
	}
	return queues, nil
}

func queueFromRecord(record *core.Record) *models.Queue {
	return &models.Queue{
		ID:        record.Id,
		Name:      record.GetString("name"),
		CreatedAt: record.GetDateTime("created").Time(),
	}
}
