package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := "The host:port of the key-value server, for example a local instance listening on the default port"
	wrapped := WrapString(text)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("line %q is longer than %d characters", line, Wrap)
		}
	}
	require.Equal(t, strings.Fields(text), strings.Fields(wrapped))
	require.Empty(t, WrapString(""))
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("endpoint", "cache:6380")
	viper.Set("db", 2)
	viper.Set("timeout", 7)
	viper.Set("metrics", true)

	c := GetClientConfig()
	require.Equal(t, "cache:6380", c.Endpoint)
	require.Equal(t, 2, c.DB)
	require.Equal(t, 7, c.TimeoutSecond)
	require.True(t, c.EnableMetrics)
	require.False(t, c.LogCommands)
}
