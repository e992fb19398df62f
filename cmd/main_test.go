package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/static/errs"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "batch", "send", "normalize", "update-defaults", "status", "token"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
}

func TestBatchCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "batch", filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, errs.ErrConfigNotFound)
}

func TestRootCommand_MissingEnvFile(t *testing.T) {
	_, err := execute(t, "--env", filepath.Join(t.TempDir(), "missing"), "normalize")
	assert.Error(t, err)
}

func TestUpdateDefaultsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	doc := `{
    "common_settings": {"dut_server_ip": "127.0.0.1", "instrument_ip": "10.0.0.2", "default_test_ids": [100]},
    "runs": [
        {
            "name": "A",
            "dut_commands": ["write_register(0x7c, 0x15, 0xFF)", "//default value"],
            "project_name": "p",
            "report_name": "r"
        }
    ]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := execute(t, "update-defaults", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 line(s) updated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "write_register(0x7c, 0x15, 0x00)"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token")
	assert.ErrorIs(t, err, errs.ErrSecretMissing)

	t.Setenv("JWT_SECRET", "s3cret")
	out, err := execute(t, "token", "--subject", "ci")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
