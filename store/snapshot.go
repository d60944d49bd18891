package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dk-butsuri/keihan-tracker/tracker"
)

// TrainRecord is one archived train row.
type TrainRecord struct {
	SnapshotID   string     `json:"snapshotId"`
	PolledAt     time.Time  `json:"polledAt"`
	BlockNo      int        `json:"blockNo"`
	State        string     `json:"state"`
	TrainNumber  string     `json:"trainNumber,omitempty"`
	Category     string     `json:"category"`
	Direction    string     `json:"direction"`
	Destination  *int       `json:"destination,omitempty"`
	Formation    int        `json:"formation"`
	PremiumCar   bool       `json:"premiumCar"`
	DelayMinutes int        `json:"delayMinutes"`
	LocationCol  *int       `json:"locationCol,omitempty"`
	LocationRow  *int       `json:"locationRow,omitempty"`
}

// SaveSnapshot archives one merged cycle and returns the snapshot id.
func (s *Store) SaveSnapshot(ctx context.Context, polledAt, serviceDate time.Time, trains []*tracker.Train) (string, error) {
	snapshotID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO snapshots (snapshot_id, polled_at_utc, service_date, train_count) VALUES (?, ?, ?, ?)",
		snapshotID, polledAt.UTC().Format(time.RFC3339), serviceDate.Format("2006-01-02"), len(trains),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_trains (
			snapshot_id, block_no, state, train_number, category, direction,
			destination, formation, premium_car, delay_minutes,
			location_col, location_row
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tr := range trains {
		var dest, col, row any
		if tr.Destination != nil {
			dest = tr.Destination.Number
		}
		if tr.Active != nil {
			col = tr.Active.Col
			row = tr.Active.Row
		}
		_, err := stmt.ExecContext(ctx,
			snapshotID, tr.BlockNo, tr.State.String(), tr.Number,
			string(tr.Category()), string(tr.Direction()),
			dest, tr.Formation, boolToInt(tr.HasPremiumCar), tr.DelayMinutes(),
			col, row,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert train %d: %w", tr.BlockNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snapshotID, nil
}

// TrainHistory returns the most recent archived rows of one train,
// newest first.
func (s *Store) TrainHistory(ctx context.Context, blockNo, limit int) ([]TrainRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.snapshot_id, s.polled_at_utc, t.block_no, t.state,
		       t.train_number, t.category, t.direction, t.destination,
		       t.formation, t.premium_car, t.delay_minutes,
		       t.location_col, t.location_row
		FROM snapshot_trains t
		JOIN snapshots s ON s.snapshot_id = t.snapshot_id
		WHERE t.block_no = ?
		ORDER BY s.polled_at_utc DESC
		LIMIT ?`, blockNo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []TrainRecord
	for rows.Next() {
		var rec TrainRecord
		var polledAt string
		var number sql.NullString
		var dest, col, row sql.NullInt64
		var premium int
		if err := rows.Scan(&rec.SnapshotID, &polledAt, &rec.BlockNo, &rec.State,
			&number, &rec.Category, &rec.Direction, &dest,
			&rec.Formation, &premium, &rec.DelayMinutes, &col, &row); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.TrainNumber = number.String
		rec.PremiumCar = premium != 0
		if ts, err := time.Parse(time.RFC3339, polledAt); err == nil {
			rec.PolledAt = ts
		}
		if dest.Valid {
			v := int(dest.Int64)
			rec.Destination = &v
		}
		if col.Valid {
			v := int(col.Int64)
			rec.LocationCol = &v
		}
		if row.Valid {
			v := int(row.Int64)
			rec.LocationRow = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
