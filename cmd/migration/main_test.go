package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

type fakeMigrator struct {
	upErr    error
	steps    int
	target   uint
	forced   int
	version  uint
	dirty    bool
	verErr   error
	migrated bool
}

func (f *fakeMigrator) Up() error { f.migrated = true; return f.upErr }
func (f *fakeMigrator) Steps(n int) error { f.steps = n; return nil }
func (f *fakeMigrator) Migrate(v uint) error { f.target = v; return nil }
func (f *fakeMigrator) Force(v int) error { f.forced = v; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.verErr }

func runCommand(t *testing.T, m migrator, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd, ok := commands[args[0]]
	require.True(t, ok, args[0])
	err := cmd.run(m, args[1:], &out, logging.NewNop())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	_, err := runCommand(t, m, "up")
	assert.NoError(t, err, "no change is not a failure")
	assert.True(t, m.migrated)

	_, err = runCommand(t, m, "down")
	require.NoError(t, err)
	assert.Equal(t, -1, m.steps)

	_, err = runCommand(t, m, "migrate", "4")
	require.NoError(t, err)
	assert.EqualValues(t, 4, m.target)

	_, err = runCommand(t, m, "force", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, m.forced)

	_, err = runCommand(t, m, "goto")
	assert.ErrorIs(t, err, errUsage)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, &fakeMigrator{verErr: migrate.ErrNilVersion}, "version")
	require.NoError(t, err)
	assert.Equal(t, "version: none\ndirty: false\n", out)

	out, err = runCommand(t, &fakeMigrator{version: 3, dirty: true}, "version")
	require.NoError(t, err)
	assert.Equal(t, "version: 3\ndirty: true\n", out)

	_, err = runCommand(t, &fakeMigrator{verErr: errors.New("conn refused")}, "version")
	assert.ErrorContains(t, err, "conn refused")
}

func TestRun_RejectsUnknownCommand(t *testing.T) {
	assert.ErrorIs(t, run(nil, &bytes.Buffer{}, logging.NewNop()), errUsage)
	assert.ErrorIs(t, run([]string{"sideways"}, &bytes.Buffer{}, logging.NewNop()), errUsage)
}

func TestParseArgs(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)
	steps, err = parseSteps([]string{" 3 "})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)
	for _, raw := range []string{"0", "-2", "x"} {
		_, err := parseSteps([]string{raw})
		assert.Error(t, err, raw)
	}

	v, err := parseVersion("7")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	_, err = parseVersion("-1")
	assert.Error(t, err)
	_, err = parseTarget("-1")
	assert.Error(t, err)
}

func TestNormalizeDBURL(t *testing.T) {
	raw := "postgres://u:p@localhost:5432/fixtures?sslmode=disable"

	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "true")
	assert.True(t, strings.Contains(normalizeDBURL(raw), "disable_prepared_binary_result=yes"))

	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
	assert.Equal(t, raw, normalizeDBURL(raw))
}
