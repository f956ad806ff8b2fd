package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pali-wallet/palid/internal/config"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	datadir := t.TempDir()
	t.Setenv("PALI_DATADIR", datadir)
	t.Setenv("PALI_NETWORK", "testnet")
	t.Setenv("PALI_POLL_INTERVAL", "2s")
	t.Setenv("PALI_ALLOWED_ORIGINS", "https://app.example, https://other.example")
	t.Setenv("PALI_EXTENSION_IDS", "pali")

	require.NoError(t, config.InitConfig())

	require.Equal(t, datadir, config.GetDatadir())
	require.Equal(t, filepath.Join(datadir, config.DbLocation), config.GetDbDir())
	require.DirExists(t, config.GetDbDir())
	require.Equal(t, config.TestNet, config.GetString(config.NetworkKey))
	require.Equal(t, 2*time.Second, config.GetDuration(config.PollIntervalKey))
	require.Equal(t, 30*time.Minute, config.GetDuration(config.ConfirmationTimeoutKey))
	require.Equal(t, 2, config.GetInt(config.MinConfirmationsKey))
	require.Equal(t, 9500, config.GetInt(config.ListeningPortKey))
	require.Equal(t, "https://blockbook-dev.elint.services", config.GetExplorerURL(config.TestNet))
	require.Equal(t, "https://blockbook.elint.services", config.GetExplorerURL(config.MainNet))
	require.Equal(t, []string{"https://app.example", "https://other.example"}, config.GetStringSlice(config.AllowedOriginsKey))
	require.Equal(t, []string{"pali"}, config.GetStringSlice(config.ExtensionIDsKey))
}

func TestInitConfigInMemory(t *testing.T) {
	t.Setenv("PALI_DATADIR", t.TempDir())
	t.Setenv("PALI_DB_TYPE", "inmemory")

	require.NoError(t, config.InitConfig())
	require.Empty(t, config.GetDbDir())
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"network", "PALI_NETWORK", "regtest"},
		{"db type", "PALI_DB_TYPE", "postgres"},
		{"explorer url", "PALI_SYS_MAINNET_EXPLORER_URL", "ftp://blockbook"},
		{"web3 url", "PALI_WEB3_RPC_URL", "localhost:8545"},
		{"min confirmations", "PALI_MIN_CONFIRMATIONS", "0"},
		{"poll interval", "PALI_POLL_INTERVAL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PALI_DATADIR", t.TempDir())
			t.Setenv(tt.key, tt.value)
			require.Error(t, config.InitConfig())
		})
	}
}
