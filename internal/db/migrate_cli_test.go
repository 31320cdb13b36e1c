package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrate(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	defer db.Close()
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, db.runMigrate(migrations, []string{"status"}, nil, &out))
	assert.Contains(t, out.String(), "Schema migrations table exists: false")

	out.Reset()
	require.NoError(t, db.runMigrate(migrations, []string{"up"}, nil, &out))
	assert.Equal(t, "Current version: 2 (dirty: false)\n", out.String())

	out.Reset()
	require.NoError(t, db.runMigrate(migrations, []string{"down"}, nil, &out))
	assert.Equal(t, "Current version: 1 (dirty: false)\n", out.String())

	out.Reset()
	require.NoError(t, db.runMigrate(migrations, []string{"version", "2"}, nil, &out))
	assert.Equal(t, "Current version: 2 (dirty: false)\n", out.String())
}

func TestRunMigrateForce(t *testing.T) {
	db := newTestDB(t)
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, db.runMigrate(migrations, []string{"force", "1"}, strings.NewReader("n\n"), &out))
	assert.Contains(t, out.String(), "Aborted")
	v, _, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	out.Reset()
	require.NoError(t, db.runMigrate(migrations, []string{"force", "1"}, strings.NewReader("y\n"), &out))
	assert.Contains(t, out.String(), "Current version: 1")
}

func TestRunMigrateUsage(t *testing.T) {
	db := newTestDB(t)
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	for _, args := range [][]string{{"sideways"}, {"version"}, {"force", "x"}, {"version", "-1"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			err := db.runMigrate(migrations, args, nil, &bytes.Buffer{})
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestPrintMigrateHelp(t *testing.T) {
	var out bytes.Buffer
	printMigrateHelp(&out)
	for _, cmd := range []string{"up", "down", "status", "version <N>", "force <N>"} {
		assert.Contains(t, out.String(), cmd)
	}
}
