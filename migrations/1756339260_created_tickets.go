package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		queues, err := app.FindCollectionByNameOrId("queues")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "queue",
				Required:      true,
				CollectionId:  queues.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.NumberField{
				Name:     "number",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.NumberField{
				Name:     "group_size",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"waiting", "called", "completed"},
			},
			&core.DateField{
				Name: "called_at",
			},
			&core.DateField{
				Name: "completed_at",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		// One number per queue, ever; the composite index serves the
		// oldest-waiting lookup.
		collection.AddIndex("idx_tickets_queue_number", true, "`queue`, `number`", "")
		collection.AddIndex("idx_tickets_queue_status_number", false, "`queue`, `status`, `number`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
