package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Defaults(t *testing.T) {
	cmd := newServeCmd()

	assert.Equal(t, ":8080", cmd.Flags().Lookup("http-addr").DefValue)
	assert.Equal(t, "data/feierabend.db", cmd.Flags().Lookup("db").DefValue)
	assert.Equal(t, "20:00", cmd.Flags().Lookup("feierabend").DefValue)
	assert.Equal(t, "09:00", cmd.Flags().Lookup("day-start").DefValue)
	assert.Equal(t, "[P]", cmd.Flags().Lookup("project-suffix").DefValue)
	assert.Equal(t, "8", cmd.Flags().Lookup("split-color-id").DefValue)
	assert.Equal(t, "true", cmd.Flags().Lookup("metrics-enabled").DefValue)
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("FEIERABEND_DB", "/var/lib/feierabend.db")
	t.Setenv("METRICS_ENABLED", "false")

	cmd := newServeCmd()
	config := ServeConfig{HTTPAddr: ":8080", DBPath: "data/feierabend.db", MetricsEnabled: true}

	loadServeEnvVars(cmd, &config)

	assert.Equal(t, ":9999", config.HTTPAddr)
	assert.Equal(t, "/var/lib/feierabend.db", config.DBPath)
	assert.False(t, config.MetricsEnabled)
}

func TestLoadServeEnvVars_FlagsWin(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")

	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Set("http-addr", ":7777"))
	config := ServeConfig{HTTPAddr: ":7777"}

	loadServeEnvVars(cmd, &config)

	assert.Equal(t, ":7777", config.HTTPAddr, "explicit flags are not overridden by the environment")
}

func TestWatchCmd_RequiresAddress(t *testing.T) {
	cmd := newWatchCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	assert.Error(t, err)
}
