package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestInitConfig(t *testing.T) {
	cfg, err := InitConfig(writeConfig(t, `
analysis:
  source:
    rpc_endpoint: https://rpc.example.com
  interval: 2s
  default_chunk_size: 5000
  storage:
    endpoint: postgres://localhost/portal
    migrations: file://storage/migrations
server:
  endpoint: localhost:8008
  storage:
    endpoint: postgres://localhost/portal
metrics:
  pull_endpoint: localhost:8009
`))
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.com", cfg.Analysis.Source.RPCEndpoint)
	require.Equal(t, 2*time.Second, cfg.Analysis.Interval)
	require.Equal(t, uint64(5000), cfg.Analysis.DefaultChunkSize)
	require.Equal(t, "localhost:8008", cfg.Server.Endpoint)
	require.False(t, cfg.Analysis.Storage.WipeStorage)
}

func TestInitConfigRejectsMissingRPCEndpoint(t *testing.T) {
	_, err := InitConfig(writeConfig(t, `
analysis:
  storage:
    endpoint: postgres://localhost/portal
    migrations: file://storage/migrations
`))
	require.Error(t, err)
}

func TestInitConfigRejectsMissingMigrations(t *testing.T) {
	_, err := InitConfig(writeConfig(t, `
analysis:
  source:
    rpc_endpoint: https://rpc.example.com
  storage:
    endpoint: postgres://localhost/portal
`))
	require.Error(t, err)
}

func TestInitConfigRejectsMissingServerStorage(t *testing.T) {
	_, err := InitConfig(writeConfig(t, `
server:
  endpoint: localhost:8008
`))
	require.Error(t, err)
}
