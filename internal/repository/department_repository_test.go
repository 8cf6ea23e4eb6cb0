package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestDepartmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "created_at"}).
		AddRow("d-1", "Finance", time.Now()).
		AddRow("d-2", "Logistics", time.Now())
	mock.ExpectQuery("SELECT id, name, created_at FROM departments").WillReturnRows(rows)

	repo := NewDepartmentRepository(db)
	result, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Logistics", result[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryListActiveUsers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDepartmentRepository(db)

	users, err := repo.ListActiveUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, users)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "department_id"}).
		AddRow("u-1", "Ana", "ana@example.com", "d-1")
	mock.ExpectQuery("SELECT id, name, email, department_id FROM users").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	users, err = repo.ListActiveUsers(context.Background(), []string{"d-1"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana@example.com", users[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
