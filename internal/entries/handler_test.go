package entries

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/sets"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/pkg"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	m.Run()
	goleak.VerifyTestMain(m)
}

type setsRepoMock struct {
	setsPerEntry map[int][]sets.Set
}

func (s *setsRepoMock) ListForEntry(_ context.Context, _, entryID int) ([]sets.Set, error) {
	entrySets, ok := s.setsPerEntry[entryID]
	if !ok {
		return make([]sets.Set, 0), nil
	}
	return entrySets, nil
}

func requestAs(t *testing.T, userID int, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	require.NoError(t, err)
	return req.WithContext(auth.SetUserID(context.Background(), userID))
}

func TestHandler_HandleAdd(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 1)
	h := NewHandler(repo, &setsRepoMock{}, metrics.NewTestManager())

	reqJson, err := json.Marshal(addEntryRequest{ExerciseID: 3, Notes: "felt strong"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, requestAs(t, 1, "POST", "/entries", reqJson))
	require.Equal(t, http.StatusCreated, rec.Code)

	var addedEntry Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addedEntry))
	assert.Equal(t, 1, addedEntry.ID)
	assert.Equal(t, 3, addedEntry.ExerciseID)
	assert.Equal(t, "felt strong", addedEntry.Notes)
}

func TestHandler_HandleAdd_BadExerciseReference(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 2) // belongs to someone else
	h := NewHandler(repo, &setsRepoMock{}, metrics.NewTestManager())

	testCases := []struct {
		name       string
		exerciseID int
	}{
		{name: "unknown exercise", exerciseID: 99},
		{name: "foreign exercise", exerciseID: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reqJson, err := json.Marshal(addEntryRequest{ExerciseID: tc.exerciseID})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			h.HandleAdd(rec, requestAs(t, 1, "POST", "/entries", reqJson))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp pkg.FieldErrorsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, "exerciseId", resp.Errors[0].Field)
		})
	}
}

func TestHandler_HandleGet_WithSets(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 1)
	h := NewHandler(repo, &setsRepoMock{
		setsPerEntry: map[int][]sets.Set{
			1: {
				{ID: 10, EntryID: 1, SetOrder: 1, Reps: 10, WeightKg: 50, OneRepMax: 66.67},
				{ID: 11, EntryID: 1, SetOrder: 2, Reps: 8, WeightKg: 55},
			},
		},
	}, metrics.NewTestManager())

	_, err := repo.Add(context.Background(), Entry{UserID: 1, ExerciseID: 3})
	require.NoError(t, err)

	req := mux.SetURLVars(requestAs(t, 1, "GET", "/entries/1", nil), map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.HandleGet(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var gotEntry EntryWithSets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotEntry))
	assert.Equal(t, 1, gotEntry.ID)
	require.Len(t, gotEntry.Sets, 2)
	assert.InDelta(t, 66.67, gotEntry.Sets[0].OneRepMax, 0.001)
}

func TestHandler_HandleGet_Ownership(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 1)
	h := NewHandler(repo, &setsRepoMock{}, metrics.NewTestManager())

	_, err := repo.Add(context.Background(), Entry{UserID: 1, ExerciseID: 3})
	require.NoError(t, err)

	req := mux.SetURLVars(requestAs(t, 2, "GET", "/entries/1", nil), map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.HandleGet(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_HandleList(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 1)
	repo.AddExercise(4, 1)
	h := NewHandler(repo, &setsRepoMock{}, metrics.NewTestManager())

	ctx := context.Background()
	_, err := repo.Add(ctx, Entry{UserID: 1, ExerciseID: 3})
	require.NoError(t, err)
	_, err = repo.Add(ctx, Entry{UserID: 1, ExerciseID: 4})
	require.NoError(t, err)
	_, err = repo.Add(ctx, Entry{UserID: 1, ExerciseID: 3})
	require.NoError(t, err)

	t.Run("all entries", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleList(rec, requestAs(t, 1, "GET", "/entries", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("filtered by exercise", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleList(rec, requestAs(t, 1, "GET", "/entries?exercise_id=3", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Entries, 2)
	})

	t.Run("paged", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleList(rec, requestAs(t, 1, "GET", "/entries?page=2&size=2", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Entries, 1)
	})

	t.Run("invalid page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleList(rec, requestAs(t, 1, "GET", "/entries?page=0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_HandleDelete(t *testing.T) {
	repo := NewMockEntriesRepo()
	repo.AddExercise(3, 1)
	h := NewHandler(repo, &setsRepoMock{}, metrics.NewTestManager())

	_, err := repo.Add(context.Background(), Entry{UserID: 1, ExerciseID: 3})
	require.NoError(t, err)

	req := mux.SetURLVars(requestAs(t, 1, "DELETE", "/entries/1", nil), map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeleteEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.DeletedID)

	_, err = repo.Get(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
