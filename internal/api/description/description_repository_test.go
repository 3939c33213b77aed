package description

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-country-recommender/app/kv"
	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

func TestFileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads empty", func(t *testing.T) {
		repo := NewFileRepository(filepath.Join(t.TempDir(), "none.json"))
		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("save merges into existing content", func(t *testing.T) {
		repo := NewFileRepository(filepath.Join(t.TempDir(), "descriptions.json"))
		require.NoError(t, repo.Save(ctx, map[string]string{"Nepal": "Непал"}))
		require.NoError(t, repo.Save(ctx, map[string]string{"Iceland": "Ice."}))

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Nepal": "Непал", "Iceland": "Ice."}, got)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "descriptions.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		got, err := NewFileRepository(path).Load(ctx)
		assert.ErrorIs(t, err, types.ErrStorageCorrupt)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestBadgerRepository(t *testing.T) {
	ctx := context.Background()
	db, err := kv.Open("", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewBadgerRepository(db)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, repo.Save(ctx, map[string]string{
		"Nepal":       "Home of Everest.",
		"Switzerland": "Alps.",
	}))
	require.NoError(t, repo.Save(ctx, map[string]string{"Nepal": "Updated."}))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Nepal": "Updated.", "Switzerland": "Alps."}, got)
}

func TestPostgresRepository_Load(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewPostgresRepository(mockPool, discardLogger())

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"country_name", "description"}).
			AddRow("Nepal", "Home of Everest.").
			AddRow("Iceland", "Ice.")
		mockPool.ExpectQuery("SELECT country_name, description FROM country_descriptions").WillReturnRows(rows)

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Nepal": "Home of Everest.", "Iceland": "Ice."}, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error returns empty map", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		mockPool.ExpectQuery("SELECT country_name, description FROM country_descriptions").WillReturnError(dbErr)

		got, err := repo.Load(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresRepository_Save(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewPostgresRepository(mockPool, discardLogger())

	t.Run("upserts in name order and commits", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO country_descriptions").
			WithArgs("Iceland", "Ice.").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO country_descriptions").
			WithArgs("Nepal", "Home of Everest.").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		err := repo.Save(ctx, map[string]string{"Nepal": "Home of Everest.", "Iceland": "Ice."})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("exec failure rolls back", func(t *testing.T) {
		dbErr := errors.New("constraint violation")
		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO country_descriptions").
			WithArgs("Nepal", "Home of Everest.").
			WillReturnError(dbErr)
		mockPool.ExpectRollback()

		err := repo.Save(ctx, map[string]string{"Nepal": "Home of Everest."})
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
