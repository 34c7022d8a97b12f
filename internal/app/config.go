package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/tailscale/hujson"

	"dappconnect/internal/crypto"
	"dappconnect/internal/domain"
	"dappconnect/internal/relay"
	"dappconnect/internal/store"
)

// Config holds runtime wiring options for the dapp CLI and the bridge.
type Config struct {
	Client ClientConfig `json:"client"`
	Store  StoreConfig  `json:"store"`
	Bridge BridgeConfig `json:"bridge"`
	Log    LogConfig    `json:"log"`
}

// ClientConfig describes the sessions the dapp proposes.
type ClientConfig struct {
	Meta    domain.ClientMeta `json:"meta"`
	ChainID *int64            `json:"chainId,omitempty"`
	// Bridge pins one bridge; otherwise one of Bridges is picked per session.
	Bridge         string   `json:"bridge,omitempty"`
	Bridges        []string `json:"bridges,omitempty"`
	Cipher         string   `json:"cipher,omitempty"`
	SigningMethods []string `json:"signingMethods,omitempty"`
}

// StoreConfig selects where connected sessions are kept. A RedisAddr takes
// precedence over Dir.
type StoreConfig struct {
	Dir        string   `json:"dir"`
	Passphrase string   `json:"passphrase,omitempty"`
	RedisAddr  string   `json:"redisAddr,omitempty"`
	KeyPrefix  string   `json:"keyPrefix,omitempty"`
	TTL        Duration `json:"ttl,omitempty"`
}

// BridgeConfig configures the development bridge server.
type BridgeConfig struct {
	ListenAddr string   `json:"listenAddr"`
	RedisAddr  string   `json:"redisAddr,omitempty"`
	KeyPrefix  string   `json:"keyPrefix,omitempty"`
	MessageTTL Duration `json:"messageTtl,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is a time.Duration written as a Go duration string in config
// files, e.g. "24h".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// env lists the supported environment overrides. Unset variables leave the
// file value alone.
type env struct {
	Bridge          string        `env:"DAPPCONNECT_BRIDGE"`
	ChainID         int64         `env:"DAPPCONNECT_CHAIN_ID"`
	StoreDir        string        `env:"DAPPCONNECT_STORE_DIR"`
	RedisAddr       string        `env:"DAPPCONNECT_REDIS_ADDR"`
	Passphrase      string        `env:"DAPPCONNECT_PASSPHRASE"`
	LogLevel        string        `env:"DAPPCONNECT_LOG_LEVEL"`
	Cipher          string        `env:"DAPPCONNECT_CIPHER"`
	ListenAddr      string        `env:"BRIDGE_LISTEN_ADDR"`
	BridgeRedisAddr string        `env:"BRIDGE_REDIS_ADDR"`
	BridgeKeyPrefix string        `env:"BRIDGE_KEY_PREFIX"`
	MessageTTL      time.Duration `env:"BRIDGE_MESSAGE_TTL"`
}

// Default returns the configuration used when no file is given. Its client
// metadata is a placeholder that passes validation.
func Default() Config {
	dir := ".dappconnect"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".dappconnect")
	}
	return Config{
		Client: ClientConfig{
			Meta: domain.ClientMeta{
				Description: "dappconnect command line client",
				URL:         "https://github.com/dappconnect",
				Icons:       []string{"https://github.com/favicon.ico"},
				Name:        "dappconnect",
			},
			Cipher: crypto.CipherAESCBCHMAC,
		},
		Store: StoreConfig{Dir: dir},
		Bridge: BridgeConfig{
			ListenAddr: ":5001",
			KeyPrefix:  store.DefaultKeyPrefix + "bridge:",
			MessageTTL: Duration(relay.DefaultMessageTTL),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the JSONC file at path over Default and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := parse(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(b []byte, cfg *Config) error {
	std, err := hujson.Standardize(b)
	if err != nil {
		return err
	}
	return json.Unmarshal(std, cfg)
}

func (c *Config) applyEnv() error {
	var e env
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment: %w", err)
	}
	if e.Bridge != "" {
		c.Client.Bridge = e.Bridge
	}
	if e.ChainID != 0 {
		id := e.ChainID
		c.Client.ChainID = &id
	}
	if e.Cipher != "" {
		c.Client.Cipher = e.Cipher
	}
	if e.StoreDir != "" {
		c.Store.Dir = e.StoreDir
	}
	if e.RedisAddr != "" {
		c.Store.RedisAddr = e.RedisAddr
	}
	if e.Passphrase != "" {
		c.Store.Passphrase = e.Passphrase
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.ListenAddr != "" {
		c.Bridge.ListenAddr = e.ListenAddr
	}
	if e.BridgeRedisAddr != "" {
		c.Bridge.RedisAddr = e.BridgeRedisAddr
	}
	if e.BridgeKeyPrefix != "" {
		c.Bridge.KeyPrefix = e.BridgeKeyPrefix
	}
	if e.MessageTTL != 0 {
		c.Bridge.MessageTTL = Duration(e.MessageTTL)
	}
	return nil
}

// Validate checks the client metadata, cipher name and store selection.
func (c Config) Validate() error {
	if err := c.Client.Meta.Validate(); err != nil {
		return fmt.Errorf("client.meta: %w", err)
	}
	if _, err := crypto.ByName(c.Client.Cipher); err != nil {
		return fmt.Errorf("client.cipher: %w: %v", domain.ErrValidation, err)
	}
	if c.Store.Dir == "" && c.Store.RedisAddr == "" {
		return fmt.Errorf("store: %w: dir or redisAddr required", domain.ErrValidation)
	}
	return nil
}
