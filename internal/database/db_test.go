package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("omamori", "p@ss", "db", "3306", "omamori")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "omamori", cfg.User)
	assert.Equal(t, "p@ss", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "omamori", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestDSN_NoPassword(t *testing.T) {
	dsn := DSN("root", "", "localhost", "3306", "omamori")
	assert.Contains(t, dsn, "root@tcp(localhost:3306)/omamori?")
}
