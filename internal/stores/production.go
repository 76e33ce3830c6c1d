package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// Stage is a manufacturing stage.
type Stage string

const (
	StageAssembly   Stage = "assembly"
	StageTest       Stage = "test"
	StageInspection Stage = "inspection"
	StageShipping   Stage = "shipping"
)

// Stages lists the manufacturing stages in the order an order passes them.
var Stages = []Stage{StageAssembly, StageTest, StageInspection, StageShipping}

// TrackingRow records one stage of one order.
type TrackingRow struct {
	ID         int64
	OrderID    int64
	Stage      Stage
	Start      time.Time // zero until started
	Completion time.Time // zero until completed
}

// Started reports whether the stage has begun.
func (r TrackingRow) Started() bool { return !r.Start.IsZero() }

// Completed reports whether the stage is done.
func (r TrackingRow) Completed() bool { return !r.Completion.IsZero() }

// ProductionStore is the manufacturing execution store.
type ProductionStore struct {
	db *db
}

var productionTables = []table{productionTrackingTable}

// StartTracking creates one row per stage for an order, with assembly
// started at start.
func (s *ProductionStore) StartTracking(ctx context.Context, orderID int64, start time.Time) error {
	return s.db.inTx(ctx, "start tracking", func(tx *sql.Tx) error {
		for _, stage := range Stages {
			var at time.Time
			if stage == StageAssembly {
				at = start
			}
			if _, err := s.db.exec(ctx, tx, "insert tracking",
				`INSERT INTO production_tracking (order_id, stage, start_datetime, completion_datetime)
				VALUES (?, ?, ?, NULL)`,
				orderID, string(stage), nullDateTime(at)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tracking returns the stage rows of an order in stage order.
func (s *ProductionStore) Tracking(ctx context.Context, orderID int64) ([]TrackingRow, error) {
	rows, err := s.db.query(ctx, s.db.DB, "select tracking",
		`SELECT tracking_id, order_id, stage, start_datetime, completion_datetime
		FROM production_tracking WHERE order_id = ? ORDER BY tracking_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TrackingRow
	for rows.Next() {
		var r TrackingRow
		var stage string
		var start, done sql.NullString
		if err := rows.Scan(&r.ID, &r.OrderID, &stage, &start, &done); err != nil {
			return nil, simerrors.StoreQuery("production", "scan tracking", err)
		}
		r.Stage = Stage(stage)
		if r.Start, err = parseTime(start); err != nil {
			return nil, simerrors.StoreQuery("production", "scan tracking", err)
		}
		if r.Completion, err = parseTime(done); err != nil {
			return nil, simerrors.StoreQuery("production", "scan tracking", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("production", "select tracking", err)
	}
	return out, nil
}

// StartStage sets the start time of a tracking row.
func (s *ProductionStore) StartStage(ctx context.Context, trackingID int64, at time.Time) error {
	return s.update(ctx, "start stage",
		`UPDATE production_tracking SET start_datetime = ? WHERE tracking_id = ?`, trackingID, at)
}

// CompleteStage sets the completion time of a tracking row.
func (s *ProductionStore) CompleteStage(ctx context.Context, trackingID int64, at time.Time) error {
	return s.update(ctx, "complete stage",
		`UPDATE production_tracking SET completion_datetime = ? WHERE tracking_id = ?`, trackingID, at)
}

func (s *ProductionStore) update(ctx context.Context, op, query string, trackingID int64, at time.Time) error {
	res, err := s.db.exec(ctx, s.db.DB, op, query, formatDateTime(at), trackingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return simerrors.StoreQuery("production", op, err)
	}
	if n == 0 {
		return simerrors.StoreNotFound("production", fmt.Sprintf("tracking %d", trackingID))
	}
	return nil
}

// ActiveStages counts stages that are started but not completed.
func (s *ProductionStore) ActiveStages(ctx context.Context) (map[Stage]int, error) {
	rows, err := s.db.query(ctx, s.db.DB, "active stages",
		`SELECT stage, COUNT(*) FROM production_tracking
		WHERE start_datetime IS NOT NULL AND completion_datetime IS NULL
		GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, simerrors.StoreQuery("production", "scan active stages", err)
		}
		out[Stage(stage)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, simerrors.StoreQuery("production", "active stages", err)
	}
	return out, nil
}
