package exercises

import (
	"context"
	"sort"
)

type repoMock struct {
	exercises map[int]*Exercise
	nextID    int
}

func NewMockExercisesRepo() *repoMock {
	return &repoMock{
		exercises: make(map[int]*Exercise),
		nextID:    1,
	}
}

func (r *repoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	seen := make(map[string]bool)
	for _, mg := range exercise.MuscleGroups {
		if seen[mg.MuscleGroup] {
			return nil, ErrDuplicateMuscleGroup
		}
		seen[mg.MuscleGroup] = true
	}

	exercise.ID = r.nextID
	r.nextID++
	r.exercises[exercise.ID] = &exercise
	return &exercise, nil
}

func (r *repoMock) Get(_ context.Context, userID, id int) (*Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (r *repoMock) ListAll(_ context.Context, userID int) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for _, ex := range r.exercises {
		if ex.UserID == userID {
			exercises = append(exercises, *ex)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].ID < exercises[j].ID
	})
	return exercises, nil
}

func (r *repoMock) List(ctx context.Context, userID, page, size int) ([]Exercise, int, error) {
	all, err := r.ListAll(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	from := (page - 1) * size
	if from >= len(all) {
		return make([]Exercise, 0), len(all), nil
	}
	to := from + size
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], len(all), nil
}

func (r *repoMock) Update(ctx context.Context, exercise *Exercise) error {
	if _, err := r.Get(ctx, exercise.UserID, exercise.ID); err != nil {
		return err
	}
	r.exercises[exercise.ID] = exercise
	return nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	exercise, ok := r.exercises[id]
	if !ok || exercise.UserID != userID {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	return nil
}
