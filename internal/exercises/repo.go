package exercises

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseInUse        = errors.New("exercise has logged entries")
	ErrDuplicateMuscleGroup = errors.New("muscle group tagged twice")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(
		ctx,
		`INSERT INTO exercise
				(user_id, name, description, bodyweight_percentage, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id;`,
		exercise.UserID, exercise.Name, exercise.Description, exercise.BodyweightPercentage, exercise.CreatedAt,
	).Scan(&exercise.ID)
	if err != nil {
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	if err := insertMuscleGroups(ctx, tx, exercise.ID, exercise.MuscleGroups); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	exercise.UpdatedAt = exercise.CreatedAt

	added, err := r.Get(ctx, exercise.UserID, exercise.ID)
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, description, bodyweight_percentage, created_at, updated_at
			FROM exercise
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}

	exercises, err := r.rows2exercises(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}
	return &exercises[0], nil
}

func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, description, bodyweight_percentage, created_at, updated_at
			FROM exercise
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return r.rows2exercises(ctx, rows)
}

// List returns the requested page of the user's exercises and the total count.
func (r *Repo) List(ctx context.Context, userID, page, size int) (_ []Exercise, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))

	if page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM exercise WHERE user_id = $1;`,
		userID,
	).Scan(&total); err != nil {
		return nil, -1, fmt.Errorf("count: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, description, bodyweight_percentage, created_at, updated_at
			FROM exercise
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3;`,
		userID, size, (page-1)*size,
	)
	if err != nil {
		return nil, -1, err
	}

	exercises, err := r.rows2exercises(ctx, rows)
	if err != nil {
		return nil, -1, err
	}
	return exercises, total, nil
}

// Update replaces the exercise row and its full muscle group tag set
// (delete-and-recreate, not a diff) in a single transaction.
func (r *Repo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(
		ctx,
		`UPDATE exercise
			SET name = $1, description = $2, bodyweight_percentage = $3, updated_at = $4
			WHERE id = $5 AND user_id = $6;`,
		exercise.Name, exercise.Description, exercise.BodyweightPercentage, time.Now(),
		exercise.ID, exercise.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM exercise_muscle_group WHERE exercise_id = $1;`,
		exercise.ID,
	); err != nil {
		return fmt.Errorf("delete muscle groups: %w", err)
	}

	if err := insertMuscleGroups(ctx, tx, exercise.ID, exercise.MuscleGroups); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			// entries reference this exercise, delete behavior is RESTRICT
			return ErrExerciseInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func insertMuscleGroups(ctx context.Context, tx pgx.Tx, exerciseID int, tags []MuscleGroupTag) error {
	for _, mg := range tags {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO exercise_muscle_group (exercise_id, muscle_group, role)
				VALUES ($1, $2, $3);`,
			exerciseID, mg.MuscleGroup, mg.Role,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrDuplicateMuscleGroup
			}
			return fmt.Errorf("insert muscle group [%s]: %w", mg.MuscleGroup, err)
		}
	}
	return nil
}

func (r *Repo) rows2exercises(ctx context.Context, rows pgx.Rows) ([]Exercise, error) {
	defer rows.Close()

	var exercises []Exercise
	var exerciseIDs []int
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Name, &e.Description,
			&e.BodyweightPercentage, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.MuscleGroups = make([]MuscleGroupTag, 0)
		exercises = append(exercises, e)
		exerciseIDs = append(exerciseIDs, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if exercises == nil {
		return make([]Exercise, 0), nil
	}

	tagRows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_id, muscle_group, role
			FROM exercise_muscle_group
			WHERE exercise_id = ANY($1)
			ORDER BY id;`,
		exerciseIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query muscle groups: %w", err)
	}
	defer tagRows.Close()

	tagsByExercise := make(map[int][]MuscleGroupTag)
	for tagRows.Next() {
		var exerciseID int
		var mg MuscleGroupTag
		if err := tagRows.Scan(&mg.ID, &exerciseID, &mg.MuscleGroup, &mg.Role); err != nil {
			return nil, err
		}
		tagsByExercise[exerciseID] = append(tagsByExercise[exerciseID], mg)
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	for i := range exercises {
		if tags, ok := tagsByExercise[exercises[i].ID]; ok {
			exercises[i].MuscleGroups = tags
		}
	}

	return exercises, nil
}
