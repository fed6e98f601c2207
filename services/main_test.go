package services

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// testPool connects to the database named by DATABASE_URL. Tests that need
// a live database skip when it is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load()
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping database tests")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// createTestUser inserts a throwaway user and removes it (and everything
// cascading off it) when the test finishes.
func createTestUser(t *testing.T, db *pgxpool.Pool) (uuid.UUID, string) {
	t.Helper()

	id := uuid.New()
	clerkID := "test_clerk_" + id.String()

	_, err := db.Exec(context.Background(), `
		INSERT INTO users (id, clerk_id, email, username)
		VALUES ($1, $2, $3, $4)
	`, id, clerkID, fmt.Sprintf("%s@example.com", id), "reader_"+id.String()[:8])
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})

	return id, clerkID
}

// ledgerSum recomputes a user's balance from the transaction log.
func ledgerSum(t *testing.T, db *pgxpool.Pool, userID uuid.UUID) int {
	t.Helper()

	var sum int
	err := db.QueryRow(context.Background(), `
		SELECT COALESCE(SUM(amount), 0) FROM ink_drop_transactions WHERE user_id = $1
	`, userID).Scan(&sum)
	require.NoError(t, err)
	return sum
}
