// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/pkg/errutil"
)

type flakyDB struct {
	failures int
	calls    int
}

func (d *flakyDB) Ping(context.Context) error {
	d.calls++
	if d.calls <= d.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		db := &flakyDB{failures: 2}
		require.NoError(t, WaitReady(ctx, db, 5, time.Millisecond))
		assert.Equal(t, 3, db.calls)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		db := &flakyDB{failures: 10}
		err := WaitReady(ctx, db, 3, time.Millisecond)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
		assert.Equal(t, 3, db.calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := WaitReady(cctx, &flakyDB{failures: 10}, 5, time.Second)
		require.Error(t, err)
	})
}

func TestInTx(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		fn        func(tx pgx.Tx) error
		wantErr   string
	}{
		{
			name: "commits on success",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE users`).
					WithArgs("a@example.com").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			fn: func(tx pgx.Tx) error {
				_, err := tx.Exec(ctx, `UPDATE users SET email = $1`, "a@example.com")
				return err
			},
		},
		{
			name: "rolls back on error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:      func(pgx.Tx) error { return errors.New("boom") },
			wantErr: "boom",
		},
		{
			name: "begin failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("pool closed"))
			},
			fn:      func(pgx.Tx) error { return nil },
			wantErr: "pool closed",
		},
		{
			name: "commit failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			fn:      func(pgx.Tx) error { return nil },
			wantErr: "serialization failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			err = InTx(ctx, mock, tt.fn)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
