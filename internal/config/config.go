package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ListeningPortKey is the port where HTTP API, message bus and gRPC
	// services are served.
	ListeningPortKey = "LISTENING_PORT"
	// NetworkKey is the Syscoin network selected at first boot, either main
	// or testnet.
	NetworkKey = "NETWORK"
	// SysMainnetExplorerURLKey is the blockbook endpoint for Syscoin mainnet
	SysMainnetExplorerURLKey = "SYS_MAINNET_EXPLORER_URL"
	// SysTestnetExplorerURLKey is the blockbook endpoint for Syscoin testnet
	SysTestnetExplorerURLKey = "SYS_TESTNET_EXPLORER_URL"
	// Web3RPCURLKey is the JSON-RPC endpoint of the EVM network. Web3 is
	// disabled if not set.
	Web3RPCURLKey = "WEB3_RPC_URL"
	// Web3ChainIDKey is the chain id of the EVM network
	Web3ChainIDKey = "WEB3_CHAIN_ID"
	// PriceAPIURLKey is the base url of the coingecko compatible price API
	PriceAPIURLKey = "PRICE_API_URL"
	// FiatCurrencyKey is the currency used to value balances
	FiatCurrencyKey = "FIAT_CURRENCY"
	// PriceUpdateIntervalKey is the interval between price updates
	PriceUpdateIntervalKey = "PRICE_UPDATE_INTERVAL"
	// PollIntervalKey is the interval between confirmation checks of
	// broadcasted txs.
	PollIntervalKey = "POLL_INTERVAL"
	// MinConfirmationsKey is the number of confirmations required before
	// moving on with the next step of multi-step flows.
	MinConfirmationsKey = "MIN_CONFIRMATIONS"
	// ConfirmationTimeoutKey is the deadline of every flow, after which
	// polling is stopped and the flow fails.
	ConfirmationTimeoutKey = "CONFIRMATION_TIMEOUT"
	// AccountRefreshIntervalKey is the interval between account updates
	AccountRefreshIntervalKey = "ACCOUNT_REFRESH_INTERVAL"
	// ExplorerRateLimitKey is the max number of requests per second to the
	// explorer.
	ExplorerRateLimitKey = "EXPLORER_RATE_LIMIT"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// TrezorBridgeURLKey is the endpoint of the TrezorConnect bridge
	TrezorBridgeURLKey = "TREZOR_BRIDGE_URL"
	// AllowedOriginsKey lists the extra origins allowed to open the message
	// bus, besides the wallet extensions.
	AllowedOriginsKey = "ALLOWED_ORIGINS"
	// ExtensionIDsKey lists the ids of the wallet extensions allowed to open
	// the message bus on behalf of the pages.
	ExtensionIDsKey = "EXTENSION_IDS"
	// WalletUnlockPasswordFile defines full path to a file  that contains the
	//password for unlocking the wallet, if provided wallet will be unlocked
	//automatically
	WalletUnlockPasswordFile = "WALLET_UNLOCK_PASSWORD_FILE"
	// NoWebhooksKey disables webhook notifications
	NoWebhooksKey = "NO_WEBHOOKS"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval for printing basic statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	ProfilerLocation = "stats"

	DBBadger   = "badger"
	DBInMemory = "inmemory"

	MainNet = "main"
	TestNet = "testnet"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("palid", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("PALI")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ListeningPortKey, 9500)
	vip.SetDefault(NetworkKey, MainNet)
	vip.SetDefault(SysMainnetExplorerURLKey, "https://blockbook.elint.services")
	vip.SetDefault(SysTestnetExplorerURLKey, "https://blockbook-dev.elint.services")
	vip.SetDefault(Web3ChainIDKey, 57)
	vip.SetDefault(PriceAPIURLKey, "https://api.coingecko.com/api/v3")
	vip.SetDefault(FiatCurrencyKey, "usd")
	vip.SetDefault(PriceUpdateIntervalKey, time.Minute)
	vip.SetDefault(PollIntervalKey, 16*time.Second)
	vip.SetDefault(MinConfirmationsKey, 2)
	vip.SetDefault(ConfirmationTimeoutKey, 30*time.Minute)
	vip.SetDefault(AccountRefreshIntervalKey, time.Minute)
	vip.SetDefault(ExplorerRateLimitKey, 10)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(TrezorBridgeURLKey, "http://127.0.0.1:21325/connect")
	vip.SetDefault(NoWebhooksKey, false)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

// Set overrides the value of the given key.
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

// GetStringSlice returns the list of values of the given key. Env vars are
// comma separated.
func GetStringSlice(key string) []string {
	values := make([]string, 0)
	for _, v := range vip.GetStringSlice(key) {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
	}
	return values
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDir returns the directory of the badger database. It is empty for
// the in-memory database.
func GetDbDir() string {
	if GetString(DBTypeKey) == DBInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetExplorerURL returns the blockbook endpoint for the given network.
func GetExplorerURL(network string) string {
	if network == TestNet {
		return GetString(SysTestnetExplorerURLKey)
	}
	return GetString(SysMainnetExplorerURLKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	network := GetString(NetworkKey)
	if network != MainNet && network != TestNet {
		return fmt.Errorf("%s must be either %s or %s", NetworkKey, MainNet, TestNet)
	}

	for _, key := range []string{
		SysMainnetExplorerURLKey, SysTestnetExplorerURLKey, PriceAPIURLKey,
		TrezorBridgeURLKey,
	} {
		if err := validateURL(GetString(key)); err != nil {
			return fmt.Errorf("%s: %s", key, err)
		}
	}
	if web3URL := GetString(Web3RPCURLKey); web3URL != "" {
		if err := validateURL(web3URL); err != nil {
			return fmt.Errorf("%s: %s", Web3RPCURLKey, err)
		}
	}

	if GetInt(MinConfirmationsKey) < 1 {
		return fmt.Errorf("%s must be greater than zero", MinConfirmationsKey)
	}
	if GetInt(ExplorerRateLimitKey) < 1 {
		return fmt.Errorf("%s must be greater than zero", ExplorerRateLimitKey)
	}
	for _, key := range []string{
		PollIntervalKey, ConfirmationTimeoutKey, AccountRefreshIntervalKey,
		PriceUpdateIntervalKey,
	} {
		if GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}

	dbType := GetString(DBTypeKey)
	if dbType != DBBadger && dbType != DBInMemory {
		return fmt.Errorf("%s must be either %s or %s", DBTypeKey, DBBadger, DBInMemory)
	}

	return nil
}

func validateURL(str string) error {
	u, err := url.Parse(str)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q", str)
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	if GetString(DBTypeKey) == DBBadger {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}

	profilerEnabled := GetBool(EnableProfilerKey)
	if profilerEnabled {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
