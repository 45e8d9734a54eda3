package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectRebind(t *testing.T) {
	q := `SELECT id FROM users WHERE email = ? AND role = ?`
	assert.Equal(t, `SELECT id FROM users WHERE email = $1 AND role = $2`, DialectPostgres.Rebind(q))
	assert.Equal(t, q, DialectSQLite.Rebind(q))
}
