package weights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
)

var ErrMeasurementNotFound = errors.New("weight measurement not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, measurement Measurement) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	now := time.Now()
	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO user_weight (user_id, weight_kg, measured_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		measurement.UserID, measurement.WeightKg, measurement.MeasuredAt, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert weight measurement: %w", err)
	}

	span.SetAttributes(attribute.Int("measurement.id", id))

	return r.Get(ctx, measurement.UserID, id)
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var m Measurement
	err = r.db.QueryRow(ctx,
		`SELECT id, user_id, weight_kg, measured_at, created_at, updated_at
		FROM user_weight
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&m.ID, &m.UserID, &m.WeightKg, &m.MeasuredAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMeasurementNotFound
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// List returns the user's full measurement history, newest first.
func (r *Repo) List(ctx context.Context, userID int) (_ []Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, weight_kg, measured_at, created_at, updated_at
		FROM user_weight
		WHERE user_id = $1
		ORDER BY measured_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	measurements := make([]Measurement, 0)
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.ID, &m.UserID, &m.WeightKg, &m.MeasuredAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan weight measurement row: %w", err)
		}
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return measurements, nil
}

// LatestAtOrBefore returns the most recent measurement taken at or
// before the given time, or ErrMeasurementNotFound when the history is
// empty up to that point.
func (r *Repo) LatestAtOrBefore(ctx context.Context, userID int, at time.Time) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.latestAtOrBefore")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var m Measurement
	err = r.db.QueryRow(ctx,
		`SELECT id, user_id, weight_kg, measured_at, created_at, updated_at
		FROM user_weight
		WHERE user_id = $1 AND measured_at <= $2
		ORDER BY measured_at DESC, id DESC
		LIMIT 1`,
		userID, at,
	).Scan(&m.ID, &m.UserID, &m.WeightKg, &m.MeasuredAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMeasurementNotFound
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Update changes a measurement and re-stamps updated_at.
func (r *Repo) Update(ctx context.Context, measurement Measurement) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`UPDATE user_weight
		SET weight_kg = $1, measured_at = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5`,
		measurement.WeightKg, measurement.MeasuredAt, time.Now(), measurement.ID, measurement.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMeasurementNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weightsRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM user_weight WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMeasurementNotFound
	}

	return nil
}
