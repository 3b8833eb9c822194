package main

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/statewire/walletcore/pkg/log"
)

const (
	configDirPathEnv     = "WALLETCTL_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
	defaultDBPath        = "walletctl.db"
)

// Config is the full walletctl configuration, read from the environment.
type Config struct {
	// ChainRPCURL is the JSON-RPC endpoint of an execution-layer node.
	// When empty, the least recently used stored endpoint is picked.
	ChainRPCURL string `env:"WALLETCTL_CHAIN_RPC_URL" validate:"omitempty,url"`

	// ChannelURL points at the off-chain payment-channel node. Leaving
	// it empty disables the off-chain commands.
	ChannelURL string `env:"WALLETCTL_CHANNEL_URL" validate:"omitempty,url"`

	// KeyName selects which stored private key signs operations.
	KeyName string `env:"WALLETCTL_KEY_NAME" env-default:"default" validate:"required"`

	// PrivateKeyHex overrides the key store when set.
	PrivateKeyHex string `env:"WALLETCTL_PRIVATE_KEY" validate:"omitempty,hexadecimal"`

	DBPath string `env:"WALLETCTL_DB_PATH"`

	Log log.Config
}

// LoadConfig builds configuration from the environment, loading a .env
// file first when one is present next to the config dir.
func LoadConfig(lg log.Logger) (*Config, error) {
	lg = lg.Named("config")

	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	dotEnvPath := filepath.Join(configDirPath, ".env")
	if err := godotenv.Load(dotEnvPath); err != nil {
		lg.Debug(".env file not found", "path", dotEnvPath)
	}

	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		lg.Error("failed to read env", "err", err)
		return nil, err
	}
	if conf.DBPath == "" {
		conf.DBPath = filepath.Join(configDirPath, defaultDBPath)
	}

	if err := validator.New().Struct(&conf); err != nil {
		lg.Error("invalid configuration", "err", err)
		return nil, err
	}

	return &conf, nil
}
