package entries

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

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

const entrySelect = `
	SELECT e.id, e.user_id, e.exercise_id, x.name, e.notes, e.created_at, e.updated_at
	FROM exercise_entry e
	JOIN exercise x ON e.exercise_id = x.id`

// ListParams narrows and pages an entries listing. A zero ExerciseID
// means no exercise filter.
type ListParams struct {
	UserID     int
	ExerciseID int
	Page       int
	Size       int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Add stores a new entry. The referenced exercise must belong to the
// same user, otherwise ErrExerciseNotFound is returned.
func (r *Repo) Add(ctx context.Context, entry Entry) (addedEntry *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "entriesRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var exerciseOwner int
	err = r.db.QueryRow(ctx,
		`SELECT user_id FROM exercise WHERE id = $1`,
		entry.ExerciseID,
	).Scan(&exerciseOwner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && exerciseOwner != entry.UserID) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check exercise: %w", err)
	}

	now := time.Now()
	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO exercise_entry (user_id, exercise_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.UserID, entry.ExerciseID, entry.Notes, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	span.SetAttributes(attribute.Int("entry.id", id))

	return r.Get(ctx, entry.UserID, id)
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "entriesRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx,
		entrySelect+` WHERE e.id = $1 AND e.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}

	return &entries[0], nil
}

// List returns one page of the user's entries, newest first, together
// with the total count for the same filter.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Entry, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "entriesRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	where := ` WHERE e.user_id = $1`
	args := []interface{}{params.UserID}
	if params.ExerciseID > 0 {
		where += ` AND e.exercise_id = $2`
		args = append(args, params.ExerciseID)
	}

	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM exercise_entry e`+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	limitPos := len(args) + 1
	args = append(args, params.Size, (params.Page-1)*params.Size)
	rows, err := r.db.Query(ctx,
		entrySelect+where+fmt.Sprintf(
			` ORDER BY e.created_at DESC, e.id DESC LIMIT $%d OFFSET $%d`,
			limitPos, limitPos+1,
		),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Update changes the entry notes and re-stamps updated_at.
func (r *Repo) Update(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "entriesRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`UPDATE exercise_entry SET notes = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`,
		entry.Notes, time.Now(), entry.ID, entry.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}

// Delete removes an entry. Its sets go with it (cascade on the FK).
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "entriesRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM exercise_entry WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}

func rows2entries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ExerciseID, &e.ExerciseName, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
