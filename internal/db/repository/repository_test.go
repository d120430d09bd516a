package repository

import (
	"testing"
	"time"

	"echoplex-server/internal/core/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *SQLiteCaseRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Case{}))
	return NewSQLiteCaseRepository(db)
}

func TestCreateCaseAssignsIDAndActivates(t *testing.T) {
	repo := newTestRepository(t)

	c := &models.Case{FullName: "Jane Doe"}
	require.NoError(t, repo.CreateCase(c))

	assert.NotEmpty(t, c.ID)
	assert.True(t, c.Active)

	loaded, err := repo.GetCase(c.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Jane Doe", loaded.FullName)
}

func TestCreateCasePreservesEmbedding(t *testing.T) {
	repo := newTestRepository(t)

	c := &models.Case{FullName: "Jane Doe"}
	require.NoError(t, c.SetEmbedding([]float64{0.1, 0.2, 0.3}))
	require.NoError(t, repo.CreateCase(c))

	loaded, err := repo.GetCase(c.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.HasEmbedding())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, loaded.EmbeddingVector())
}

func TestGetCaseMissingReturnsNil(t *testing.T) {
	repo := newTestRepository(t)

	loaded, err := repo.GetCase("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestListCasesNewestFirst(t *testing.T) {
	repo := newTestRepository(t)

	older := &models.Case{ID: "older", FullName: "Older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.Case{ID: "newer", FullName: "Newer", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateCase(older))
	require.NoError(t, repo.CreateCase(newer))

	cases, err := repo.ListCases()
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "newer", cases[0].ID)
	assert.Equal(t, "older", cases[1].ID)
}

func TestDeactivateCaseExcludesFromSnapshot(t *testing.T) {
	repo := newTestRepository(t)

	active := &models.Case{ID: "active", FullName: "Active"}
	retired := &models.Case{ID: "retired", FullName: "Retired"}
	require.NoError(t, repo.CreateCase(active))
	require.NoError(t, repo.CreateCase(retired))

	require.NoError(t, repo.DeactivateCase("retired"))

	snapshot, err := repo.ActiveSnapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "active", snapshot[0].ID)

	// The deactivated case is still readable, just no longer matched.
	loaded, err := repo.GetCase("retired")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Active)
}

func TestDeactivateCaseMissing(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.DeactivateCase("does-not-exist")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActiveSnapshotCreationOrder(t *testing.T) {
	repo := newTestRepository(t)

	first := &models.Case{ID: "first", CreatedAt: time.Now().Add(-2 * time.Hour)}
	second := &models.Case{ID: "second", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.CreateCase(second))
	require.NoError(t, repo.CreateCase(first))

	snapshot, err := repo.ActiveSnapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "first", snapshot[0].ID)
	assert.Equal(t, "second", snapshot[1].ID)
}
