package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlatformMock(t *testing.T) (*platformRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &platformRepo{db: db}, mock
}

func TestPlatformRepo_ListAll(t *testing.T) {
	repo, mock := newPlatformMock(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "dr.dk").
		AddRow(int64(2), "politiken.dk")
	mock.ExpectQuery("SELECT id, name FROM platforms").
		WillReturnRows(rows)

	platforms, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, "dr.dk", platforms[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlatformRepo_GetOrCreate(t *testing.T) {
	repo, mock := newPlatformMock(t)

	mock.ExpectQuery("INSERT INTO platforms").
		WithArgs("borsen.dk").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "borsen.dk"))

	platform, err := repo.GetOrCreate(context.Background(), "borsen.dk")
	require.NoError(t, err)
	assert.Equal(t, int64(5), platform.ID)
	assert.Equal(t, "borsen.dk", platform.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
