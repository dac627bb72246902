package sets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
)

var (
	ErrSetNotFound   = errors.New("set not found")
	ErrEntryNotFound = errors.New("entry not found")
)

const pgForeignKeyViolation = "23503"

// setSelect pulls the set row together with the read-time context for
// the one-rep-max estimates: the exercise's bodyweight percentage and
// the user's most recent weight measurement at or before the entry time.
const setSelect = `
	SELECT
		s.id, s.entry_id, s.user_id, s.set_order, s.reps, s.weight_kg, s.rir,
		s.created_at, s.updated_at,
		x.bodyweight_percentage, w.weight_kg
	FROM exercise_set s
	JOIN exercise_entry e ON s.entry_id = e.id
	JOIN exercise x ON e.exercise_id = x.id
	LEFT JOIN LATERAL (
		SELECT uw.weight_kg
		FROM user_weight uw
		WHERE uw.user_id = s.user_id AND uw.measured_at <= e.created_at
		ORDER BY uw.measured_at DESC
		LIMIT 1
	) w ON true`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Add stores a new set. The target entry must belong to the same user,
// otherwise ErrEntryNotFound is returned.
func (r *Repo) Add(ctx context.Context, set Set) (addedSet *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var entryOwner int
	err = r.db.QueryRow(ctx,
		`SELECT user_id FROM exercise_entry WHERE id = $1`,
		set.EntryID,
	).Scan(&entryOwner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && entryOwner != set.UserID) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check entry: %w", err)
	}

	now := time.Now()
	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO exercise_set
			(entry_id, user_id, set_order, reps, weight_kg, rir, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		set.EntryID, set.UserID, set.SetOrder, set.Reps, set.WeightKg, set.RIR, now, now,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("insert set: %w", err)
	}

	span.SetAttributes(attribute.Int("set.id", id))

	return r.Get(ctx, set.UserID, id)
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setsRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx,
		setSelect+` WHERE s.id = $1 AND s.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}

	sets, err := rows2sets(rows)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, ErrSetNotFound
	}

	return &sets[0], nil
}

// ListForEntry returns the sets of one entry, in set order. The entry
// must belong to the user, otherwise ErrEntryNotFound is returned.
func (r *Repo) ListForEntry(ctx context.Context, userID, entryID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setsRepo.listForEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var entryOwner int
	err = r.db.QueryRow(ctx,
		`SELECT user_id FROM exercise_entry WHERE id = $1`,
		entryID,
	).Scan(&entryOwner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && entryOwner != userID) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check entry: %w", err)
	}

	rows, err := r.db.Query(ctx,
		setSelect+` WHERE s.entry_id = $1 AND s.user_id = $2 ORDER BY s.set_order, s.id`,
		entryID, userID,
	)
	if err != nil {
		return nil, err
	}

	return rows2sets(rows)
}

// Update changes the mutable fields of a set and re-stamps updated_at.
func (r *Repo) Update(ctx context.Context, set Set) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setsRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`UPDATE exercise_set
		SET set_order = $1, reps = $2, weight_kg = $3, rir = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7`,
		set.SetOrder, set.Reps, set.WeightKg, set.RIR, time.Now(), set.ID, set.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setsRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM exercise_set WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}

	return nil
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	defer rows.Close()

	sets := make([]Set, 0)
	for rows.Next() {
		var s Set
		if err := rows.Scan(
			&s.ID, &s.EntryID, &s.UserID, &s.SetOrder, &s.Reps, &s.WeightKg, &s.RIR,
			&s.CreatedAt, &s.UpdatedAt,
			&s.BodyweightPercentage, &s.Bodyweight,
		); err != nil {
			return nil, fmt.Errorf("scan set row: %w", err)
		}
		s.ComputeEstimates()
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}
