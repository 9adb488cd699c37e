package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/config"
)

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()

	port := cmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "8080", port.DefValue)
	assert.Equal(t, config.DefaultPort, 8080)

	require.NoError(t, cmd.ParseFlags([]string{"--open", "-p", "9000"}))
	open, err := cmd.Flags().GetBool("open")
	require.NoError(t, err)
	assert.True(t, open)
	assert.True(t, cmd.Flags().Changed("port"))
}

func TestRootRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(nil)
	err := cmd.Execute()
	require.Error(t, err)
}
