package trainings

import (
	"context"
	"sort"
)

type repoMock struct {
	trainings        map[int]*Training
	items            map[int]*TrainingExercise
	ownedExerciseIDs map[int]int // exercise id -> owner user id
	nextID           int
	nextItemID       int
}

func NewMockTrainingsRepo() *repoMock {
	return &repoMock{
		trainings:        make(map[int]*Training),
		items:            make(map[int]*TrainingExercise),
		ownedExerciseIDs: make(map[int]int),
		nextID:           1,
		nextItemID:       1,
	}
}

func (r *repoMock) AddOwnedExercise(exerciseID, userID int) {
	r.ownedExerciseIDs[exerciseID] = userID
}

func (r *repoMock) Add(_ context.Context, training Training) (*Training, error) {
	training.ID = r.nextID
	r.nextID++
	training.Exercises = make([]TrainingExercise, 0)
	r.trainings[training.ID] = &training
	return &training, nil
}

func (r *repoMock) Get(_ context.Context, userID, id int) (*Training, error) {
	training, ok := r.trainings[id]
	if !ok || training.UserID != userID {
		return nil, ErrTrainingNotFound
	}

	result := *training
	result.Exercises = r.itemsOf(id)
	return &result, nil
}

func (r *repoMock) ListAll(ctx context.Context, userID int) ([]Training, error) {
	trainings := make([]Training, 0)
	for _, t := range r.trainings {
		if t.UserID != userID {
			continue
		}
		withItems, err := r.Get(ctx, userID, t.ID)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, *withItems)
	}
	sort.Slice(trainings, func(i, j int) bool {
		return trainings[i].ID < trainings[j].ID
	})
	return trainings, nil
}

func (r *repoMock) Update(_ context.Context, training Training) error {
	stored, ok := r.trainings[training.ID]
	if !ok || stored.UserID != training.UserID {
		return ErrTrainingNotFound
	}
	stored.Name = training.Name
	stored.Description = training.Description
	return nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	training, ok := r.trainings[id]
	if !ok || training.UserID != userID {
		return ErrTrainingNotFound
	}
	delete(r.trainings, id)
	for itemID, item := range r.items {
		if item.TrainingID == id {
			delete(r.items, itemID)
		}
	}
	return nil
}

func (r *repoMock) AddExercise(_ context.Context, userID int, item TrainingExercise) (*TrainingExercise, error) {
	training, ok := r.trainings[item.TrainingID]
	if !ok || training.UserID != userID {
		return nil, ErrTrainingNotFound
	}
	owner, ok := r.ownedExerciseIDs[item.ExerciseID]
	if !ok || owner != userID {
		return nil, ErrExerciseNotFound
	}

	item.ID = r.nextItemID
	r.nextItemID++
	r.items[item.ID] = &item
	return &item, nil
}

func (r *repoMock) UpdateExercise(_ context.Context, userID int, item TrainingExercise) error {
	training, ok := r.trainings[item.TrainingID]
	if !ok || training.UserID != userID {
		return ErrTrainingNotFound
	}
	stored, ok := r.items[item.ID]
	if !ok || stored.TrainingID != item.TrainingID {
		return ErrTrainingExerciseNotFound
	}
	stored.Position = item.Position
	stored.TargetSets = item.TargetSets
	stored.TargetReps = item.TargetReps
	stored.Notes = item.Notes
	return nil
}

func (r *repoMock) RemoveExercise(_ context.Context, userID, trainingID, itemID int) error {
	training, ok := r.trainings[trainingID]
	if !ok || training.UserID != userID {
		return ErrTrainingNotFound
	}
	item, ok := r.items[itemID]
	if !ok || item.TrainingID != trainingID {
		return ErrTrainingExerciseNotFound
	}
	delete(r.items, itemID)
	return nil
}

func (r *repoMock) itemsOf(trainingID int) []TrainingExercise {
	items := make([]TrainingExercise, 0)
	for _, item := range r.items {
		if item.TrainingID == trainingID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items
}
