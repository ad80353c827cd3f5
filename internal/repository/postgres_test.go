package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-catering-requests/internal/database"
)

// Set CATERING_TEST_DATABASE_URL to run these against a disposable database.
func TestPostgresStore_Contract(t *testing.T) {
	url := os.Getenv("CATERING_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATERING_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, database.MigrateUp(url))

	db, err := database.New(ctx, database.Config{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	runStoreContract(t, func(t *testing.T) Store {
		_, err := db.Exec(ctx, `TRUNCATE notifications, attachments, payments, invoices,
			request_history, service_requests, departments, users CASCADE`)
		require.NoError(t, err)
		return NewPostgresStore(db)
	})
}
