package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"sync", "status", "serve", "reclassify", "backfill", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "catalog-sync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSyncCommand_Flags(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{"every", "0s"},
		{"metrics-addr", ""},
		{"from-dir", ""},
		{"dry-run", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := syncCmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag, "sync should have --%s", tt.name)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)

	assert.NotNil(t, serveCmd.Flags().Lookup("schedule"))
}

func TestReclassifyCommand_Flags(t *testing.T) {
	for _, name := range []string{"apply", "rollback", "list-batches", "report-dir", "batch-size"} {
		assert.NotNil(t, reclassifyCmd.Flags().Lookup(name), "reclassify should have --%s", name)
	}
	assert.Equal(t, "false", reclassifyCmd.Flags().Lookup("apply").DefValue)
}

func TestBackfillCommand_HasFacets(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range backfillCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["facets"])

	flag := backfillFacetsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestStatusCommand_Flags(t *testing.T) {
	flag := statusCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "10", flag.DefValue)
}

func TestNonEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, nonEmpty("a", "", "c"))
	assert.Nil(t, nonEmpty("", ""))
}
