package exercises

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpetkovic/fitlog/internal/db"
	"github.com/vpetkovic/fitlog/internal/users"
)

// runs against a real database, set FITLOG_TEST_DB_HOST to enable
// (e.g. FITLOG_TEST_DB_HOST=localhost with the schema from scripts/tables.sql)
func TestRepo_BasicCRUD(t *testing.T) {
	dbHost := os.Getenv("FITLOG_TEST_DB_HOST")
	if dbHost == "" {
		t.Skip("FITLOG_TEST_DB_HOST not set, skipping db-backed test")
	}
	dbPort := os.Getenv("FITLOG_TEST_DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}
	dbName := os.Getenv("FITLOG_TEST_DB_NAME")
	if dbName == "" {
		dbName = "fitlog_test"
	}

	ctx := context.Background()

	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: dbHost,
		DBPort: dbPort,
		DBName: dbName,
	})
	require.NoError(t, err)
	defer pool.Close()

	usersRepo := users.NewRepo(pool)
	owner, err := usersRepo.Add(ctx, users.User{
		Username:     gofakeit.Username(),
		PasswordHash: "irrelevant-here",
		Name:         gofakeit.Name(),
		BirthDate:    time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		HeightCm:     180,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	repo := NewRepo(pool)

	added, err := repo.Add(ctx, Exercise{
		UserID:               owner.ID,
		Name:                 "Weighted Dip",
		Description:          "on parallel bars",
		BodyweightPercentage: 0.95,
		MuscleGroups: []MuscleGroupTag{
			{MuscleGroup: "chest", Role: "primary"},
			{MuscleGroup: "triceps", Role: "secondary"},
		},
	})
	require.NoError(t, err)
	defer func() {
		if err := repo.Delete(ctx, owner.ID, added.ID); err != nil {
			fmt.Println("cleanup exercise:", err)
		}
	}()

	require.NotZero(t, added.ID)
	assert.Equal(t, "Weighted Dip", added.Name)
	assert.Len(t, added.MuscleGroups, 2)

	retrieved, err := repo.Get(ctx, owner.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, retrieved.ID)
	assert.InDelta(t, 0.95, retrieved.BodyweightPercentage, 0.0001)
	assert.Len(t, retrieved.MuscleGroups, 2)

	// other users must not see it
	_, err = repo.Get(ctx, owner.ID+1, added.ID)
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	listed, err := repo.ListAll(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	retrieved.Name = "Dip"
	retrieved.MuscleGroups = []MuscleGroupTag{
		{MuscleGroup: "chest", Role: "primary"},
	}
	require.NoError(t, repo.Update(ctx, retrieved))

	updated, err := repo.Get(ctx, owner.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dip", updated.Name)
	assert.Len(t, updated.MuscleGroups, 1)

	scratch, err := repo.Add(ctx, Exercise{UserID: owner.ID, Name: "Row"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, owner.ID, scratch.ID))

	_, err = repo.Get(ctx, owner.ID, scratch.ID)
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}
