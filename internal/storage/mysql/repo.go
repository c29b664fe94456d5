package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"owner_stay/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.DayString(*t)
}

// Ledger is the durable store around the booking core: an audit row for
// every create/cancel outcome and a record of each applied allowance reset.
type Ledger struct{ db *sql.DB }

func New(db *sql.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) Record(ctx context.Context, e domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := l.db.ExecContext(ctx, insertEntrySQL,
		e.ID,
		e.OwnerID,
		e.CabinID,
		e.Action,
		valStr(e.BookingID),
		valDay(e.CheckIn),
		valDay(e.CheckOut),
		e.Nights,
		e.Outcome,
		valStr(e.Detail),
	)
	return err
}

func (l *Ledger) ApplyReset(ctx context.Context, ownerID, cabinID string, resetOn time.Time) error {
	_, err := l.db.ExecContext(ctx, insertResetSQL, ownerID, cabinID, domain.DayString(resetOn))
	return err
}

func (l *Ledger) LastReset(ctx context.Context, ownerID, cabinID string) (time.Time, bool, error) {
	var raw sql.NullTime
	err := l.db.QueryRowContext(ctx, lastResetSQL, ownerID, cabinID).Scan(&raw)
	if err == sql.ErrNoRows || (err == nil && !raw.Valid) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return domain.Day(raw.Time), true, nil
}

func (l *Ledger) ListEntries(ctx context.Context, ownerID, cabinID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, listEntriesSQL, ownerID, cabinID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			bookingID sql.NullString
			checkIn   sql.NullTime
			checkOut  sql.NullTime
			detail    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.CabinID, &e.Action, &bookingID,
			&checkIn, &checkOut, &e.Nights, &e.Outcome, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.BookingID = bookingID.String
		e.Detail = detail.String
		if checkIn.Valid {
			d := domain.Day(checkIn.Time)
			e.CheckIn = &d
		}
		if checkOut.Valid {
			d := domain.Day(checkOut.Time)
			e.CheckOut = &d
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
