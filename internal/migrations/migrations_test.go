package migrations

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_UsernameUniqueIgnoresCase(t *testing.T) {
	data, err := fs.ReadFile(embedMigrations, "00001_create_users.sql")
	require.NoError(t, err)

	ddl := string(data)
	assert.Regexp(t, regexp.MustCompile(`(?i)CREATE\s+UNIQUE\s+INDEX\s+IF\s+NOT\s+EXISTS\s+users_username_key\s+ON\s+users\s+\(lower\(username\)\)`), ddl)
	assert.NotRegexp(t, regexp.MustCompile(`(?i)UNIQUE\s*\(\s*username\s*\)`), ddl)
}
