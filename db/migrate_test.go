package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/db"
	"github.com/Dosada05/alumni-network/db/dbtest"
)

func TestMigrateSeedsFieldRegistry(t *testing.T) {
	conn := dbtest.New(t)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM field_admin_assignments`).Scan(&count))
	assert.Equal(t, 9, count)

	// повторный запуск не дублирует строки реестра
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM field_admin_assignments`).Scan(&count))
	assert.Equal(t, 9, count)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := db.Connect("mysql", "", 0)
	assert.Error(t, err)
}
