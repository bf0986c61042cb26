package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"vrflottery/internal/models"

	"github.com/spf13/viper"
)

const (
	OracleLocal  = "local"
	OracleHTTP   = "http"
	WalletMemory = "memory"
	WalletHTTP   = "http"
)

var (
	supportedOracles = map[string]struct{}{
		OracleLocal: {},
		OracleHTTP:  {},
	}
	supportedWallets = map[string]struct{}{
		WalletMemory: {},
		WalletHTTP:   {},
	}
)

// Config is the process configuration, read once at start-up.
type Config struct {
	Port    uint32
	Datadir string

	EntranceFee          uint64
	TimeInterval         time.Duration
	KeyHash              string
	SubscriptionID       uint64
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32

	OracleType         string
	OracleURL          string
	OracleToken        string
	CoordinatorAddress string
	CoordinatorToken   string
	LocalSeed          string
	LocalFulfillDelay  time.Duration

	WalletType  string
	WalletURL   string
	WalletToken string

	RedisAddr    string
	RedisChannel string

	KeeperInterval time.Duration

	LogVerbose bool
	LogFile    string
}

// String renders the config as JSON with secrets redacted.
func (c *Config) String() string {
	clone := *c
	clone.OracleToken = redact(clone.OracleToken)
	clone.CoordinatorToken = redact(clone.CoordinatorToken)
	clone.WalletToken = redact(clone.WalletToken)
	clone.LocalSeed = redact(clone.LocalSeed)
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

// RandomnessRequest returns the oracle parameters sent with every request.
func (c *Config) RandomnessRequest() models.RandomnessRequest {
	return models.RandomnessRequest{
		KeyHash:              c.KeyHash,
		SubscriptionID:       c.SubscriptionID,
		RequestConfirmations: c.RequestConfirmations,
		CallbackGasLimit:     c.CallbackGasLimit,
		NumWords:             c.NumWords,
	}
}

var (
	Port                 = "PORT"
	Datadir              = "DATADIR"
	EntranceFee          = "ENTRANCE_FEE"
	TimeInterval         = "TIME_INTERVAL"
	KeyHash              = "KEY_HASH"
	SubscriptionID       = "SUBSCRIPTION_ID"
	CallbackGasLimit     = "CALLBACK_GAS_LIMIT"
	RequestConfirmations = "REQUEST_CONFIRMATIONS"
	NumWords             = "NUM_WORDS"
	OracleType           = "ORACLE_TYPE"
	OracleURL            = "ORACLE_URL"
	OracleToken          = "ORACLE_TOKEN"
	CoordinatorAddress   = "COORDINATOR_ADDRESS"
	CoordinatorToken     = "COORDINATOR_TOKEN"
	LocalSeed            = "LOCAL_SEED"
	LocalFulfillDelay    = "LOCAL_FULFILL_DELAY"
	WalletType           = "WALLET_TYPE"
	WalletURL            = "WALLET_URL"
	WalletToken          = "WALLET_TOKEN"
	RedisAddr            = "REDIS_ADDR"
	RedisChannel         = "REDIS_CHANNEL"
	KeeperInterval       = "KEEPER_INTERVAL"
	LogVerbose           = "LOG_VERBOSE"
	LogFile              = "LOG_FILE"

	defaultPort                 = 8080
	defaultEntranceFee          = 10_000_000 // 0.01 in gwei units
	defaultTimeInterval         = 30 * time.Second
	defaultKeyHash              = "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"
	defaultSubscriptionID       = 1
	defaultCallbackGasLimit     = 500000
	defaultRequestConfirmations = 3
	defaultNumWords             = 1
	defaultOracleType           = OracleLocal
	defaultCoordinatorAddress   = "vrf-coordinator"
	defaultWalletType           = WalletMemory
	defaultRedisChannel         = "lottery-events"
	defaultKeeperInterval       = 10 * time.Second
)

// LoadConfig reads LOTTERY_* environment variables over the defaults and validates them.
func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("LOTTERY")
	viper.AutomaticEnv()

	viper.SetDefault(Port, defaultPort)
	viper.SetDefault(EntranceFee, defaultEntranceFee)
	viper.SetDefault(TimeInterval, defaultTimeInterval)
	viper.SetDefault(KeyHash, defaultKeyHash)
	viper.SetDefault(SubscriptionID, defaultSubscriptionID)
	viper.SetDefault(CallbackGasLimit, defaultCallbackGasLimit)
	viper.SetDefault(RequestConfirmations, defaultRequestConfirmations)
	viper.SetDefault(NumWords, defaultNumWords)
	viper.SetDefault(OracleType, defaultOracleType)
	viper.SetDefault(CoordinatorAddress, defaultCoordinatorAddress)
	viper.SetDefault(WalletType, defaultWalletType)
	viper.SetDefault(RedisChannel, defaultRedisChannel)
	viper.SetDefault(KeeperInterval, defaultKeeperInterval)

	cfg := &Config{
		Port:                 viper.GetUint32(Port),
		Datadir:              viper.GetString(Datadir),
		EntranceFee:          viper.GetUint64(EntranceFee),
		TimeInterval:         viper.GetDuration(TimeInterval),
		KeyHash:              viper.GetString(KeyHash),
		SubscriptionID:       viper.GetUint64(SubscriptionID),
		CallbackGasLimit:     viper.GetUint32(CallbackGasLimit),
		RequestConfirmations: viper.GetUint16(RequestConfirmations),
		NumWords:             viper.GetUint32(NumWords),
		OracleType:           viper.GetString(OracleType),
		OracleURL:            viper.GetString(OracleURL),
		OracleToken:          viper.GetString(OracleToken),
		CoordinatorAddress:   viper.GetString(CoordinatorAddress),
		CoordinatorToken:     viper.GetString(CoordinatorToken),
		LocalSeed:            viper.GetString(LocalSeed),
		LocalFulfillDelay:    viper.GetDuration(LocalFulfillDelay),
		WalletType:           viper.GetString(WalletType),
		WalletURL:            viper.GetString(WalletURL),
		WalletToken:          viper.GetString(WalletToken),
		RedisAddr:            viper.GetString(RedisAddr),
		RedisChannel:         viper.GetString(RedisChannel),
		KeeperInterval:       viper.GetDuration(KeeperInterval),
		LogVerbose:           viper.GetBool(LogVerbose),
		LogFile:              viper.GetString(LogFile),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the lottery cannot run with.
func (c *Config) Validate() error {
	if c.EntranceFee == 0 {
		return fmt.Errorf("entrance fee must be positive")
	}
	if c.TimeInterval <= 0 {
		return fmt.Errorf("time interval must be positive")
	}
	if c.NumWords == 0 {
		return fmt.Errorf("number of random words must be positive")
	}
	if len(c.CoordinatorAddress) <= 0 {
		return fmt.Errorf("missing coordinator address")
	}
	if c.KeeperInterval < 0 {
		return fmt.Errorf("keeper interval must not be negative")
	}
	if c.LocalFulfillDelay < 0 {
		return fmt.Errorf("local fulfill delay must not be negative")
	}

	if _, ok := supportedOracles[c.OracleType]; !ok {
		return fmt.Errorf("oracle type not supported, please select one of: %s", keys(supportedOracles))
	}
	if c.OracleType == OracleHTTP {
		if len(c.OracleURL) <= 0 {
			return fmt.Errorf("missing oracle url for http oracle")
		}
		if len(c.CoordinatorToken) <= 0 {
			return fmt.Errorf("missing coordinator token for http oracle callbacks")
		}
	}

	if _, ok := supportedWallets[c.WalletType]; !ok {
		return fmt.Errorf("wallet type not supported, please select one of: %s", keys(supportedWallets))
	}
	if c.WalletType == WalletHTTP && len(c.WalletURL) <= 0 {
		return fmt.Errorf("missing wallet url for http wallet")
	}
	return nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
