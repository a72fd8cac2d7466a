package datastore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestGetProfile(t *testing.T) {
	store, mock := setupStore(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
			WithArgs("admin@makstark.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "full_name", "role", "email"}).
				AddRow("admin@makstark.com", "admin", "Mak Stark Admin", "admin", "admin@makstark.com"))

		p, err := store.GetProfile(ctx, "admin@makstark.com")
		require.NoError(t, err)
		assert.Equal(t, "Mak Stark Admin", p.FullName)
		assert.Equal(t, "admin", p.Role)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetProfile(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProject(t *testing.T) {
	store, mock := setupStore(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Wedding", "Asha", "Wedding Photography", "EVT-1", "INV-1", "50000", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	p := &Project{
		Name:         "Wedding",
		ClientName:   "Asha",
		EventType:    "Wedding Photography",
		EventCode:    "EVT-1",
		InvoiceNo:    "INV-1",
		Amount:       "50000",
		Deliverables: []string{"Photography (Basic)"},
	}
	require.NoError(t, store.InsertProject(context.Background(), p))
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjects(t *testing.T) {
	store, mock := setupStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM projects ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "client_name", "event_type", "event_code", "invoice_number", "amount", "deliverables", "created_at"}).
			AddRow(int64(2), "Summit", "TechCorp", "Conference", "EVT-2", "INV-2", "90000", `{"Live Streaming","Highlight Reel"}`, now).
			AddRow(int64(1), "Wedding", "Asha", "Wedding Photography", "EVT-1", "INV-1", "50000", "{\"Photography (Basic)\"}", now))

	got, err := store.ListProjects(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Live Streaming", "Highlight Reel"}, got[0].Deliverables)
	assert.Equal(t, []string{"Photography (Basic)"}, got[1].Deliverables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountProjects(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM projects`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(156)))

	n, err := store.CountProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(156), n)
}

func TestUpdateSettings(t *testing.T) {
	store, mock := setupStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE settings SET data = \$2`).
		WithArgs("admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.UpdateSettings(ctx, "admin", map[string]any{"theme": "dark"}))

	mock.ExpectExec(`UPDATE settings SET data = \$2`).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.UpdateSettings(ctx, "ghost", map[string]any{}), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettings(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`SELECT data FROM settings WHERE id = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"notifications":true}`)))

	got, err := store.GetSettings(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, true, got["notifications"])
}

func TestCheckConnection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"ok", nil, true},
		{"pgx invalid text is tolerated", &pgconn.PgError{Code: "22P02"}, true},
		{"pq invalid text is tolerated", &pq.Error{Code: "22P02"}, true},
		{"undefined table fails", &pgconn.PgError{Code: "42P01"}, false},
		{"network error fails", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := setupStore(t)
			exp := mock.ExpectQuery(`SELECT count\(\*\) FROM profiles`)
			if tc.err != nil {
				exp.WillReturnError(tc.err)
			} else {
				exp.WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
			}

			assert.Equal(t, tc.want, store.CheckConnection(context.Background()))
		})
	}
}
