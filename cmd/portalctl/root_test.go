package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/clientportal/internal/activity"
	"github.com/2beens/clientportal/internal/portal"
	"github.com/2beens/clientportal/pkg"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHashCmd(t *testing.T) {
	out, err := runCmd(t, "hash", "--cost", "4", "admin123")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"))
	assert.True(t, pkg.CheckPasswordHash("admin123", hash))
	assert.False(t, pkg.CheckPasswordHash("admin124", hash))

	_, err = runCmd(t, "hash")
	assert.Error(t, err)
}

func TestAppsListCmd(t *testing.T) {
	out, err := runCmd(t, "apps", "list", "--category", "Infrastructure", "--search", "kra")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "18"))

	out, err = runCmd(t, "apps", "list", "--json")
	require.NoError(t, err)
	var apps []portal.App
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	assert.Len(t, apps, 20)

	_, err = runCmd(t, "apps", "list", "--category", "Games")
	assert.ErrorIs(t, err, portal.ErrUnknownCategory)
}

func TestSessionsCleanCmd_RedisDisabled(t *testing.T) {
	path := writeConfig(t, "[development]\nredis_disabled = true\n")
	_, err := runCmd(t, "sessions", "clean", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis is disabled")
}

func TestActivityCmd_Disabled(t *testing.T) {
	path := writeConfig(t, "[production]\nactivity_log_enabled = false\n")
	_, err := runCmd(t, "activity", "migrate", "--env", "prod", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity log is disabled")

	_, err = runCmd(t, "activity", "recent", "--config", filepath.Join(t.TempDir(), "missing.toml"), "admin@totalenergies.com")
	assert.Error(t, err)
}

func TestPrintEntries(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	require.NoError(t, printEntries(cmd, nil, now))
	assert.Equal(t, "no activity\n", out.String())

	out.Reset()
	require.NoError(t, printEntries(cmd, []activity.Entry{
		{Action: "Signed in to the portal", Type: activity.TypeSuccess, IP: "41.90.64.10", City: "Nairobi", CreatedAt: now.Add(-2 * time.Hour)},
	}, now))
	assert.Contains(t, out.String(), "2 hours ago")
	assert.Contains(t, out.String(), "Nairobi")
}
