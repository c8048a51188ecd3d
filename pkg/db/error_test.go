package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type uniqueRow struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm sentinel", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "ux" (SQLSTATE 23505)`), want: true},
		{name: "mysql", err: errors.New("Error 1062 (23000): Duplicate entry"), want: true},
		{name: "pg typed", err: fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "pg typed fk", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "mysql typed", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, want: true},
		{name: "mysql typed deadlock", err: &mysql.MySQLError{Number: 1213}, want: false},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestIsDuplicateKeyErrFromSQLite(t *testing.T) {
	conn := NewTest(t, &uniqueRow{})

	assert.NoError(t, conn.Create(&uniqueRow{ID: 1, Code: "a"}).Error)
	err := conn.Create(&uniqueRow{ID: 2, Code: "a"}).Error
	assert.True(t, IsDuplicateKeyErr(err))
}

func TestIsNotFoundErr(t *testing.T) {
	conn := NewTest(t, &uniqueRow{})

	var row uniqueRow
	err := conn.First(&row, "code = ?", "missing").Error
	assert.True(t, IsNotFoundErr(err))
	assert.False(t, IsNotFoundErr(nil))
}
