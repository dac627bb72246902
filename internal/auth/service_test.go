package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestAuthService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)
	require.NotNil(t, authService)
	assert.NotNil(t, authService.redisClient)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	userID := 42
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, sessionValue(userID, now), 0).SetVal(sessionValue(userID, now))
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectGet(sessionKey).SetVal(sessionValue(42, time.Now()))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Now()
	then := now.Add(-2 * time.Hour)

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(ttl, rdb)
	require.NotNil(t, authService)

	freshToken := "fresh_token"
	staleToken := "stale_token"
	brokenToken := "broken_token"

	mock.ExpectSMembers(tokensSetKey).SetVal([]string{freshToken, staleToken, brokenToken})
	mock.ExpectGet(sessionKeyPrefix + freshToken).SetVal(sessionValue(1, now))
	mock.ExpectGet(sessionKeyPrefix + staleToken).SetVal(sessionValue(2, then))
	mock.ExpectGet(sessionKeyPrefix + brokenToken).SetVal("rubbish")

	// stale and malformed sessions get removed
	mock.ExpectDel(sessionKeyPrefix + staleToken).SetVal(1)
	mock.ExpectSRem(tokensSetKey, staleToken).SetVal(1)
	mock.ExpectDel(sessionKeyPrefix + brokenToken).SetVal(1)
	mock.ExpectSRem(tokensSetKey, brokenToken).SetVal(1)

	authService.ScanAndClean(context.Background())
}

func TestParseSessionValue(t *testing.T) {
	now := time.Now()

	userID, createdAt, err := parseSessionValue(sessionValue(42, now))
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, now.Unix(), createdAt.Unix())

	_, _, err = parseSessionValue("rubbish")
	assert.Error(t, err)

	_, _, err = parseSessionValue("abc|123")
	assert.Error(t, err)
}
