package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
ethereum:
  rpc_url: http://localhost:8545
instances:
  - currency: eth
    amount: "0.1"
    contract: "0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc"
    deploy_block: 9116966
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, uint64(300000), cfg.Sync.ChunkSize)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, CacheDriverFile, cfg.Cache.Driver)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.Equal(t, 30*time.Second, cfg.Ethereum.RequestTimeout)
	assert.Equal(t, uint64(0), cfg.Ethereum.Confirmations)
	assert.True(t, cfg.Monitoring.Enabled)
	assert.Equal(t, "stderr", cfg.Logging.OutputPath)
	assert.Equal(t, 8080, cfg.Server.Port)

	inst, ok := cfg.Instance("ETH", "0.1")
	require.True(t, ok)
	assert.Equal(t, uint64(9116966), inst.DeployBlock)

	_, ok = cfg.Instance("eth", "1")
	assert.False(t, ok)
}

func TestParse_ExplicitValuesOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + `
sync:
  chunk_size: 1000
monitoring:
  enabled: false
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.Sync.ChunkSize)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing rpc url",
			yaml: `
instances:
  - {currency: eth, amount: "0.1", contract: "0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc"}
`,
		},
		{
			name: "no instances",
			yaml: `
ethereum: {rpc_url: "http://localhost:8545"}
`,
		},
		{
			name: "bad amount",
			yaml: `
ethereum: {rpc_url: "http://localhost:8545"}
instances:
  - {currency: eth, amount: "ten", contract: "0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc"}
`,
		},
		{
			name: "bad contract",
			yaml: `
ethereum: {rpc_url: "http://localhost:8545"}
instances:
  - {currency: eth, amount: "0.1", contract: "0x1234"}
`,
		},
		{
			name: "duplicate instance",
			yaml: `
ethereum: {rpc_url: "http://localhost:8545"}
instances:
  - {currency: eth, amount: "0.1", contract: "0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc"}
  - {currency: ETH, amount: "0.1", contract: "0x47CE0C6eD5B0Ce3d3A51fdb1C52DC66a7c3c2936"}
`,
		},
		{
			name: "unknown cache driver",
			yaml: minimalConfig + `
cache: {driver: redis}
`,
		},
		{
			name: "postgres without user",
			yaml: minimalConfig + `
cache: {driver: postgres}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_RPC_URL", "http://node.internal:8545")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ethereum:
  rpc_url: ${TEST_RPC_URL}
instances:
  - {currency: eth, amount: "1", contract: "0x47CE0C6eD5B0Ce3d3A51fdb1C52DC66a7c3c2936"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://node.internal:8545", cfg.Ethereum.RPCURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "https://rpc.example.org")
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.Ethereum.RPCURL)
	assert.Len(t, cfg.Instances, 2)
	assert.Equal(t, CacheDriverFile, cfg.Cache.Driver)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)

	inst, ok := cfg.Instance("ETH", "0.1")
	require.True(t, ok)
	assert.Equal(t, uint64(9116966), inst.DeployBlock)
}
