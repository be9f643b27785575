package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/hideme-auth/migrations"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "version"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "default path",
			args:     []string{"--help"},
			wantFlag: defaultConfigPath,
		},
		{
			name:     "separate value",
			args:     []string{"--config", "/etc/hideme/auth.yaml", "--help"},
			wantFlag: "/etc/hideme/auth.yaml",
		},
		{
			name:     "with equals",
			args:     []string{"--config=/tmp/auth.yaml", "--help"},
			wantFlag: "/tmp/auth.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Version: "+version)
	assert.Contains(t, buf.String(), "Commit: "+commit)
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_USER", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: test\n"), 0o600))

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "--config", path, "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestPrintStatus(t *testing.T) {
	buf := new(bytes.Buffer)
	printStatus(buf, []migrations.Status{
		{Name: "create_accounts_table", Description: "Creates the accounts table", Applied: true},
		{Name: "add_index", Description: "Adds an index"},
	})

	out := buf.String()
	assert.Contains(t, out, "applied  create_accounts_table  Creates the accounts table")
	assert.Contains(t, out, "pending  add_index")
}
