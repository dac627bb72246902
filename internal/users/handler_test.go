package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/pkg"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	m.Run()
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

const testToken = "test-token"

// newTestHandler wires the handler to an in-memory repo and an auth
// service backed by a redis mock that accepts any session write.
func newTestHandler(t *testing.T) (*Handler, *repoMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		_ = db.Close()
	})
	mock.MatchExpectationsInOrder(false)
	anyArgs := func(expected, actual []interface{}) error { return nil }
	for i := 0; i < 10; i++ {
		mock.CustomMatch(anyArgs).ExpectSet("", "", 0).SetVal("OK")
		mock.CustomMatch(anyArgs).ExpectSAdd("", "").SetVal(1)
	}

	authService := auth.NewService(time.Hour, db)
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	repo := NewMockUsersRepo()
	return NewHandler(repo, authService, metrics.NewTestManager(), 8), repo
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	reqJson, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, bytes.NewReader(reqJson))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func validRegisterRequest() registerRequest {
	return registerRequest{
		Username:  "mirko",
		Password:  "super-secret",
		Name:      "Mirko M",
		BirthDate: "1990-04-15",
		HeightCm:  184,
	}
}

func TestHandler_Register(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.handleRegister(rec, jsonRequest(t, "POST", "/a/register", validRegisterRequest()))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testToken, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "mirko", resp.User.Username)
	assert.NotNil(t, resp.User.LastLoginAt)

	// password hash never leaves the server
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// session cookie set for browser clients
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, auth.SessionCookie, cookies[0].Name)
	assert.Equal(t, testToken, cookies[0].Value)

	storedUser, err := repo.GetByUsername(context.Background(), "mirko")
	require.NoError(t, err)
	assert.True(t, pkg.CheckPasswordHash("super-secret", storedUser.PasswordHash))
}

func TestHandler_Register_InvalidInput(t *testing.T) {
	h, _ := newTestHandler(t)

	testCases := []struct {
		name          string
		mutate        func(r *registerRequest)
		expectedField string
	}{
		{
			name:          "short username",
			mutate:        func(r *registerRequest) { r.Username = "ab" },
			expectedField: "Username",
		},
		{
			name:          "short password",
			mutate:        func(r *registerRequest) { r.Password = "1234567" },
			expectedField: "Password",
		},
		{
			name:          "future birth date",
			mutate:        func(r *registerRequest) { r.BirthDate = "2150-01-01" },
			expectedField: "BirthDate",
		},
		{
			name:          "malformed birth date",
			mutate:        func(r *registerRequest) { r.BirthDate = "15.04.1990" },
			expectedField: "BirthDate",
		},
		{
			name:          "height too low",
			mutate:        func(r *registerRequest) { r.HeightCm = 30 },
			expectedField: "HeightCm",
		},
		{
			name:          "height too high",
			mutate:        func(r *registerRequest) { r.HeightCm = 350 },
			expectedField: "HeightCm",
		},
		{
			name:          "missing name",
			mutate:        func(r *registerRequest) { r.Name = "" },
			expectedField: "Name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			registerReq := validRegisterRequest()
			tc.mutate(&registerReq)

			rec := httptest.NewRecorder()
			h.handleRegister(rec, jsonRequest(t, "POST", "/a/register", registerReq))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp pkg.FieldErrorsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Errors)

			found := false
			for _, fieldErr := range resp.Errors {
				if fieldErr.Field == tc.expectedField {
					found = true
				}
			}
			assert.True(t, found, "expected a field error for %s", tc.expectedField)
		})
	}
}

func TestHandler_Register_UsernameTaken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.handleRegister(rec, jsonRequest(t, "POST", "/a/register", validRegisterRequest()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.handleRegister(rec, jsonRequest(t, "POST", "/a/register", validRegisterRequest()))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp pkg.FieldErrorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Username", resp.Errors[0].Field)
	assert.Equal(t, "taken", resp.Errors[0].Error)
}

func TestHandler_Login(t *testing.T) {
	h, repo := newTestHandler(t)

	passwordHash, err := pkg.HashPassword("super-secret")
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), User{
		Username:     "mirko",
		PasswordHash: passwordHash,
		Name:         "Mirko M",
	})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleLogin(rec, jsonRequest(t, "POST", "/a/login", loginRequest{
			Username: "mirko",
			Password: "super-secret",
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp sessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testToken, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleLogin(rec, jsonRequest(t, "POST", "/a/login", loginRequest{
			Username: "mirko",
			Password: "not-it",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleLogin(rec, jsonRequest(t, "POST", "/a/login", loginRequest{
			Username: "nobody",
			Password: "super-secret",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.handleLogin(rec, jsonRequest(t, "POST", "/a/login", loginRequest{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_GetMe(t *testing.T) {
	h, repo := newTestHandler(t)

	addedUser, err := repo.Add(context.Background(), User{
		Username: "mirko",
		Name:     "Mirko M",
		HeightCm: 184,
	})
	require.NoError(t, err)

	req := jsonRequest(t, "GET", "/a/me", nil)
	req = req.WithContext(auth.SetUserID(context.Background(), addedUser.ID))

	rec := httptest.NewRecorder()
	h.handleGetMe(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var gotUser User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotUser))
	assert.Equal(t, "mirko", gotUser.Username)

	// no user id in context
	rec = httptest.NewRecorder()
	h.handleGetMe(rec, jsonRequest(t, "GET", "/a/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateMe(t *testing.T) {
	h, repo := newTestHandler(t)

	passwordHash, err := pkg.HashPassword("super-secret")
	require.NoError(t, err)
	addedUser, err := repo.Add(context.Background(), User{
		Username:     "mirko",
		PasswordHash: passwordHash,
		Name:         "Mirko M",
		HeightCm:     184,
	})
	require.NoError(t, err)

	req := jsonRequest(t, "PUT", "/a/me", updateProfileRequest{
		Name:      "Mirko Markovic",
		BirthDate: "1990-04-15",
		HeightCm:  185,
	})
	req = req.WithContext(auth.SetUserID(context.Background(), addedUser.ID))

	rec := httptest.NewRecorder()
	h.handleUpdateMe(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	updatedUser, err := repo.Get(context.Background(), addedUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mirko Markovic", updatedUser.Name)
	assert.Equal(t, float64(185), updatedUser.HeightCm)
	// empty password in the request keeps the old one
	assert.True(t, pkg.CheckPasswordHash("super-secret", updatedUser.PasswordHash))
}
