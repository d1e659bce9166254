package db

import (
	"context"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the booking schema if it does not exist. Used for dev
// bootstrap and tests; production schema changes go through the
// golang-migrate runner in internal/database/migrations.
func Migrate(ctx context.Context, bunDB *bun.DB) error {
	tables := []interface{}{
		(*models.Showtime)(nil),
		(*models.ShowtimePrice)(nil),
		(*models.ShowtimeSeat)(nil),
		(*models.Booking)(nil),
		(*models.BookedSeat)(nil),
	}
	for _, table := range tables {
		if _, err := bunDB.NewCreateTable().
			Model(table).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
