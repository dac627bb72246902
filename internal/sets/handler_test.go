package sets

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
	gomock "go.uber.org/mock/gomock"
	"go.uber.org/goleak"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/pkg"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	m.Run()
	goleak.VerifyTestMain(m)
}

const testUserID = 7

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
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
	return req.WithContext(auth.SetUserID(context.Background(), testUserID))
}

func TestHandler_HandleAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	reqJson, err := json.Marshal(addSetRequest{
		EntryID:  3,
		SetOrder: 1,
		Reps:     10,
		WeightKg: 50,
		RIR:      2,
	})
	require.NoError(t, err)

	repoMock.EXPECT().
		Add(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, set Set) (*Set, error) {
			assert.Equal(t, testUserID, set.UserID)
			assert.Equal(t, 3, set.EntryID)
			assert.Equal(t, 10, set.Reps)
			added := set
			added.ID = 11
			added.ComputeEstimates()
			return &added, nil
		}).Times(1)

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, authedRequest(t, "POST", "/sets", reqJson))
	require.Equal(t, http.StatusCreated, rec.Code)

	var addedSet Set
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addedSet))
	assert.Equal(t, 11, addedSet.ID)
	assert.InDelta(t, 66.6666, addedSet.OneRepMax, 0.001)
	assert.InDelta(t, 72, addedSet.PerceivedOneRepMax, 0.001)
	assert.True(t, addedSet.BodyweightResolved)
}

func TestHandler_HandleAdd_EntryNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	reqJson, err := json.Marshal(addSetRequest{
		EntryID:  999,
		Reps:     10,
		WeightKg: 50,
	})
	require.NoError(t, err)

	repoMock.EXPECT().
		Add(gomock.Any(), gomock.Any()).
		Return(nil, ErrEntryNotFound).Times(1)

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, authedRequest(t, "POST", "/sets", reqJson))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp pkg.FieldErrorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "entryId", resp.Errors[0].Field)
}

func TestHandler_HandleAdd_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	testCases := []struct {
		name string
		req  addSetRequest
	}{
		{name: "zero reps", req: addSetRequest{EntryID: 1, Reps: 0, WeightKg: 50}},
		{name: "too many reps", req: addSetRequest{EntryID: 1, Reps: 101, WeightKg: 50}},
		{name: "negative weight", req: addSetRequest{EntryID: 1, Reps: 5, WeightKg: -1}},
		{name: "absurd weight", req: addSetRequest{EntryID: 1, Reps: 5, WeightKg: 1001}},
		{name: "negative rir", req: addSetRequest{EntryID: 1, Reps: 5, WeightKg: 50, RIR: -1}},
		{name: "too high rir", req: addSetRequest{EntryID: 1, Reps: 5, WeightKg: 50, RIR: 11}},
		{name: "missing entry id", req: addSetRequest{Reps: 5, WeightKg: 50}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reqJson, err := json.Marshal(tc.req)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			h.HandleAdd(rec, authedRequest(t, "POST", "/sets", reqJson))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_HandleAdd_NoUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	reqJson, err := json.Marshal(addSetRequest{EntryID: 1, Reps: 5, WeightKg: 50})
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/sets", bytes.NewReader(reqJson))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.HandleAdd(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_HandleGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	bodyweight := 80.0
	storedSet := Set{
		ID: 5, EntryID: 3, UserID: testUserID,
		Reps: 8, WeightKg: 20,
		BodyweightPercentage: 0.95,
		Bodyweight:           &bodyweight,
	}
	storedSet.ComputeEstimates()

	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 5).
		Return(&storedSet, nil).Times(1)

	req := mux.SetURLVars(authedRequest(t, "GET", "/sets/5", nil), map[string]string{"id": "5"})
	rec := httptest.NewRecorder()
	h.HandleGet(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var gotSet Set
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotSet))
	assert.Equal(t, 5, gotSet.ID)
	assert.True(t, gotSet.BodyweightResolved)
	assert.InDelta(t, storedSet.OneRepMax, gotSet.OneRepMax, 0.0001)
}

func TestHandler_HandleGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 5).
		Return(nil, ErrSetNotFound).Times(1)

	req := mux.SetURLVars(authedRequest(t, "GET", "/sets/5", nil), map[string]string{"id": "5"})
	rec := httptest.NewRecorder()
	h.HandleGet(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_HandleList(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().
		ListForEntry(gomock.Any(), testUserID, 3).
		Return([]Set{
			{ID: 1, EntryID: 3, SetOrder: 1, Reps: 10, WeightKg: 50},
			{ID: 2, EntryID: 3, SetOrder: 2, Reps: 8, WeightKg: 55},
		}, nil).Times(1)

	rec := httptest.NewRecorder()
	h.HandleList(rec, authedRequest(t, "GET", "/sets?entry_id=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sets, 2)
	assert.Equal(t, 1, resp.Sets[0].SetOrder)
}

func TestHandler_HandleList_ForeignEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().
		ListForEntry(gomock.Any(), testUserID, 3).
		Return(nil, ErrEntryNotFound).Times(1)

	rec := httptest.NewRecorder()
	h.HandleList(rec, authedRequest(t, "GET", "/sets?entry_id=3", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().
		Delete(gomock.Any(), testUserID, 5).
		Return(nil).Times(1)

	req := mux.SetURLVars(authedRequest(t, "DELETE", "/sets/5", nil), map[string]string{"id": "5"})
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeleteSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.DeletedID)
}

func TestHandler_HandleUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	// no entryId in the payload, a set stays with its entry
	reqJson, err := json.Marshal(updateSetRequest{SetOrder: 2, Reps: 6, WeightKg: 60})
	require.NoError(t, err)

	repoMock.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, set Set) error {
			assert.Equal(t, 5, set.ID)
			assert.Equal(t, testUserID, set.UserID)
			assert.Equal(t, 6, set.Reps)
			return nil
		}).Times(1)
	repoMock.EXPECT().
		Get(gomock.Any(), testUserID, 5).
		Return(&Set{ID: 5, EntryID: 3, SetOrder: 2, Reps: 6, WeightKg: 60}, nil).Times(1)

	req := mux.SetURLVars(authedRequest(t, "PUT", "/sets/5", reqJson), map[string]string{"id": "5"})
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updatedSet Set
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updatedSet))
	assert.Equal(t, 6, updatedSet.Reps)
}

func TestHandler_HandleUpdate_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMocksetsRepo(ctrl)
	h := NewHandler(repoMock, metrics.NewTestManager())

	reqJson, err := json.Marshal(updateSetRequest{Reps: 5, WeightKg: 60})
	require.NoError(t, err)

	repoMock.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		Return(ErrSetNotFound).Times(1)

	req := mux.SetURLVars(authedRequest(t, "PUT", "/sets/5", reqJson), map[string]string{"id": "5"})
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
