package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "remind"})

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "./config.yaml", flag.DefValue)
}

func TestMigrateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "")

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", t.TempDir() + "/missing.yaml"})
	assert.Error(t, root.Execute())
}
