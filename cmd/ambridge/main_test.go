package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ambridge/internal/core/cleanup"
)

func TestRenderCounts(t *testing.T) {
	out := renderCounts("Cleanup", cleanupRows(cleanup.Report{Orphans: 2, DateShifts: 1}))
	assert.Contains(t, out, "Cleanup")
	assert.Contains(t, out, "Orphans removed")
	assert.Contains(t, out, "Dates shifted")
	assert.Contains(t, out, "2")
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs([]string{"m001_1,m001_2", "m002_1 m002_3", ""})
	assert.Equal(t, []string{"m001_1", "m001_2", "m002_1", "m002_3"}, got)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"setup", "update", "cleanup", "relink", "rescrape", "link", "merge-scenes"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	update, _, err := root.Find([]string{"update"})
	require.NoError(t, err)
	assert.NotNil(t, update.Flags().Lookup("from-cache"))

	link, _, err := root.Find([]string{"link"})
	require.NoError(t, err)
	assert.NotNil(t, link.Flags().Lookup("scenes"))
	assert.NotNil(t, link.Flags().Lookup("character"))
}
