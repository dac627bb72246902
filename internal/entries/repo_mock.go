package entries

import (
	"context"
	"sort"
)

type repoMock struct {
	entries          map[int]*Entry
	ownedExerciseIDs map[int]int // exercise id -> owner user id
	nextID           int
}

func NewMockEntriesRepo() *repoMock {
	return &repoMock{
		entries:          make(map[int]*Entry),
		ownedExerciseIDs: make(map[int]int),
		nextID:           1,
	}
}

func (r *repoMock) AddExercise(exerciseID, userID int) {
	r.ownedExerciseIDs[exerciseID] = userID
}

func (r *repoMock) Add(_ context.Context, entry Entry) (*Entry, error) {
	owner, ok := r.ownedExerciseIDs[entry.ExerciseID]
	if !ok || owner != entry.UserID {
		return nil, ErrExerciseNotFound
	}
	entry.ID = r.nextID
	r.nextID++
	r.entries[entry.ID] = &entry
	return &entry, nil
}

func (r *repoMock) Get(_ context.Context, userID, id int) (*Entry, error) {
	entry, ok := r.entries[id]
	if !ok || entry.UserID != userID {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Entry, int, error) {
	matching := make([]Entry, 0)
	for _, e := range r.entries {
		if e.UserID != params.UserID {
			continue
		}
		if params.ExerciseID > 0 && e.ExerciseID != params.ExerciseID {
			continue
		}
		matching = append(matching, *e)
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].ID > matching[j].ID
	})

	total := len(matching)
	from := (params.Page - 1) * params.Size
	if from >= total {
		return make([]Entry, 0), total, nil
	}
	to := from + params.Size
	if to > total {
		to = total
	}
	return matching[from:to], total, nil
}

func (r *repoMock) Update(ctx context.Context, entry Entry) error {
	stored, err := r.Get(ctx, entry.UserID, entry.ID)
	if err != nil {
		return err
	}
	stored.Notes = entry.Notes
	return nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	entry, ok := r.entries[id]
	if !ok || entry.UserID != userID {
		return ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}
