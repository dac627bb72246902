package trainings

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
	ErrTrainingNotFound         = errors.New("training not found")
	ErrTrainingExerciseNotFound = errors.New("training exercise not found")
	ErrExerciseNotFound         = errors.New("exercise not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, training Training) (addedTraining *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	now := time.Now()
	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO training (user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		training.UserID, training.Name, training.Description, now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert training: %w", err)
	}

	span.SetAttributes(attribute.Int("training.id", id))

	return r.Get(ctx, training.UserID, id)
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var t Training
	err = r.db.QueryRow(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		FROM training
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTrainingNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Exercises, err = r.listExercises(ctx, id)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		FROM training
		WHERE user_id = $1
		ORDER BY name, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trainings := make([]Training, 0)
	for rows.Next() {
		var t Training
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan training row: %w", err)
		}
		trainings = append(trainings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(trainings) == 0 {
		return trainings, nil
	}

	trainingIDs := make([]int, 0, len(trainings))
	for _, t := range trainings {
		trainingIDs = append(trainingIDs, t.ID)
	}
	exercisesPerTraining, err := r.listExercisesFor(ctx, trainingIDs)
	if err != nil {
		return nil, err
	}
	for i := range trainings {
		items, ok := exercisesPerTraining[trainings[i].ID]
		if !ok {
			items = make([]TrainingExercise, 0)
		}
		trainings[i].Exercises = items
	}

	return trainings, nil
}

// Update changes the training name and description and re-stamps
// updated_at.
func (r *Repo) Update(ctx context.Context, training Training) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`UPDATE training SET name = $1, description = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5`,
		training.Name, training.Description, time.Now(), training.ID, training.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}

	return nil
}

// Delete removes a training. Its exercise slots go with it (cascade on
// the FK), the exercises themselves stay.
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM training WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}

	return nil
}

// AddExercise appends an exercise slot to a training. Both the training
// and the referenced exercise must belong to the user.
func (r *Repo) AddExercise(ctx context.Context, userID int, item TrainingExercise) (_ *TrainingExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err = r.checkTrainingOwner(ctx, userID, item.TrainingID); err != nil {
		return nil, err
	}

	var exerciseOwner int
	err = r.db.QueryRow(ctx,
		`SELECT user_id FROM exercise WHERE id = $1`,
		item.ExerciseID,
	).Scan(&exerciseOwner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && exerciseOwner != userID) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check exercise: %w", err)
	}

	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO training_exercise (training_id, exercise_id, position, target_sets, target_reps, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.TrainingID, item.ExerciseID, item.Position, item.TargetSets, item.TargetReps, item.Notes,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert training exercise: %w", err)
	}

	return r.getExercise(ctx, item.TrainingID, id)
}

// UpdateExercise changes the position, targets and notes of one slot.
func (r *Repo) UpdateExercise(ctx context.Context, userID int, item TrainingExercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.updateExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err = r.checkTrainingOwner(ctx, userID, item.TrainingID); err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE training_exercise SET position = $1, target_sets = $2, target_reps = $3, notes = $4
		WHERE id = $5 AND training_id = $6`,
		item.Position, item.TargetSets, item.TargetReps, item.Notes, item.ID, item.TrainingID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainingExerciseNotFound
	}

	return nil
}

func (r *Repo) RemoveExercise(ctx context.Context, userID, trainingID, itemID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainingsRepo.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err = r.checkTrainingOwner(ctx, userID, trainingID); err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM training_exercise WHERE id = $1 AND training_id = $2`,
		itemID, trainingID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainingExerciseNotFound
	}

	return nil
}

func (r *Repo) checkTrainingOwner(ctx context.Context, userID, trainingID int) error {
	var owner int
	err := r.db.QueryRow(ctx,
		`SELECT user_id FROM training WHERE id = $1`,
		trainingID,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != userID) {
		return ErrTrainingNotFound
	}
	if err != nil {
		return fmt.Errorf("check training: %w", err)
	}
	return nil
}

func (r *Repo) getExercise(ctx context.Context, trainingID, id int) (*TrainingExercise, error) {
	var item TrainingExercise
	err := r.db.QueryRow(ctx,
		`SELECT te.id, te.training_id, te.exercise_id, x.name, te.position, te.target_sets, te.target_reps, te.notes
		FROM training_exercise te
		JOIN exercise x ON te.exercise_id = x.id
		WHERE te.id = $1 AND te.training_id = $2`,
		id, trainingID,
	).Scan(&item.ID, &item.TrainingID, &item.ExerciseID, &item.ExerciseName, &item.Position, &item.TargetSets, &item.TargetReps, &item.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTrainingExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repo) listExercises(ctx context.Context, trainingID int) ([]TrainingExercise, error) {
	exercisesPerTraining, err := r.listExercisesFor(ctx, []int{trainingID})
	if err != nil {
		return nil, err
	}
	items, ok := exercisesPerTraining[trainingID]
	if !ok {
		return make([]TrainingExercise, 0), nil
	}
	return items, nil
}

func (r *Repo) listExercisesFor(ctx context.Context, trainingIDs []int) (map[int][]TrainingExercise, error) {
	rows, err := r.db.Query(ctx,
		`SELECT te.id, te.training_id, te.exercise_id, x.name, te.position, te.target_sets, te.target_reps, te.notes
		FROM training_exercise te
		JOIN exercise x ON te.exercise_id = x.id
		WHERE te.training_id = ANY($1)
		ORDER BY te.position, te.id`,
		trainingIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercisesPerTraining := make(map[int][]TrainingExercise)
	for rows.Next() {
		var item TrainingExercise
		if err := rows.Scan(
			&item.ID, &item.TrainingID, &item.ExerciseID, &item.ExerciseName,
			&item.Position, &item.TargetSets, &item.TargetReps, &item.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan training exercise row: %w", err)
		}
		exercisesPerTraining[item.TrainingID] = append(exercisesPerTraining[item.TrainingID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exercisesPerTraining, nil
}
