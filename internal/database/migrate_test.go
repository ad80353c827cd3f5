package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/catering?sslmode=disable", migrateURL("postgres://u:p@db:5432/catering?sslmode=disable"))
	assert.Equal(t, "pgx5://db/catering", migrateURL("postgresql://db/catering"))
	assert.Equal(t, "pgx5://db/catering", migrateURL("pgx5://db/catering"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
