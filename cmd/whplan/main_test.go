package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"solve", "verify", "batch", "runs"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestLoadDomainDefaultsToWarehouse(t *testing.T) {
	d, err := loadDomain("")
	require.NoError(t, err)
	assert.Equal(t, "warehouse", d.Name())
}

func TestLoadDomainMissingFile(t *testing.T) {
	_, err := loadDomain("/nonexistent/domain.yaml")
	assert.Error(t, err)
}
