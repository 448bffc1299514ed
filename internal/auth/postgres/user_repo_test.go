// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/pkg/errutil"
)

var userCols = []string{"id", "username", "email", "password_hash", "profile_id", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	user := &auth.User{
		ID:           ulid.Make(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		execErr   error
		wantCode  string
		wantTaken bool
	}{
		{name: "inserts user"},
		{
			name:      "maps unique violation to username taken",
			execErr:   &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_lower_idx"},
			wantCode:  "USER_USERNAME_TAKEN",
			wantTaken: true,
		},
		{
			name:     "wraps other errors",
			execErr:  errors.New("connection refused"),
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO users`).
				WithArgs(user.ID.String(), user.Username, user.Email, user.PasswordHash, user.CreatedAt)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := NewUserRepository(mock).Create(context.Background(), user)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantTaken, errors.Is(err, auth.ErrUsernameTaken))
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	id := ulid.Make()
	profileID := ulid.Make().String()
	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	t.Run("scans user with profile", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE lower\(username\) = lower\(\$1\)`).
			WithArgs("Alice").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(id.String(), "alice", "alice@example.com", "hash", &profileID, created))

		user, err := NewUserRepository(mock).GetByUsername(context.Background(), "Alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "alice", user.Username)
		require.NotNil(t, user.ProfileID)
		assert.Equal(t, profileID, user.ProfileID.String())
		assert.True(t, user.HasProfile())
	})

	t.Run("returns not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).GetByUsername(context.Background(), "ghost")
		require.Error(t, err)
		errutil.AssertCodedAs(t, err, "USER_NOT_FOUND", auth.ErrNotFound)
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	id := ulid.Make()

	t.Run("scans user without profile", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(id.String(), "bob", "bob@example.com", "hash", nil, time.Now()))

		user, err := NewUserRepository(mock).GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, user.ProfileID)
		assert.False(t, user.HasProfile())
	})

	t.Run("rejects corrupt id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow("not-a-ulid", "bob", "bob@example.com", "hash", nil, time.Now()))

		_, err := NewUserRepository(mock).GetByID(context.Background(), id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_CORRUPT_ID")
	})

	t.Run("wraps query errors", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(errors.New("timeout"))

		_, err := NewUserRepository(mock).GetByID(context.Background(), id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_GET_FAILED")
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}
