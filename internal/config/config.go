// Package config loads node configuration from aurum.toml, the AURUM_*
// environment, and built-in defaults, in ascending precedence of defaults,
// file, then environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/crypto"
	"github.com/aurumchain/go-aurum/internal/logging"
)

// Store backends accepted by store.backend.
const (
	BackendMemory  = "memory"
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
)

// History drivers accepted by history.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config materialises node configuration.
type Config struct {
	Node    NodeConfig     `mapstructure:"node"`
	Oracle  OracleConfig   `mapstructure:"oracle"`
	Store   StoreConfig    `mapstructure:"store"`
	History HistoryConfig  `mapstructure:"history"`
	RPC     RPCConfig      `mapstructure:"rpc"`
	GRPC    GRPCConfig     `mapstructure:"grpc"`
	Logging logging.Config `mapstructure:"logging"`
}

// NodeConfig selects the chain and local paths.
type NodeConfig struct {
	Network string `mapstructure:"network"`
	DataDir string `mapstructure:"data_dir"`
}

// OracleConfig carries the per-network oracle public keys, either inline
// (PEM block or compressed secp256k1 hex) or as file references.
type OracleConfig struct {
	Keys     map[string]string `mapstructure:"keys"`
	KeyFiles map[string]string `mapstructure:"key_files"`
}

// StoreConfig governs the record store.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	CacheSize int    `mapstructure:"cache_size"`
}

// HistoryConfig governs the relational history database.
type HistoryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RPCConfig governs the JSON-RPC and websocket listener.
type RPCConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ListenAddr      string `mapstructure:"listen_addr"`
	EnableWebsocket bool   `mapstructure:"enable_websocket"`
}

// GRPCConfig governs the admin gRPC listener.
type GRPCConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds configuration from file, environment, and defaults. An empty
// path searches for aurum.toml in the working directory; a missing file is
// not an error, the defaults stand.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AURUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aurum")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.network", "mainnet")
	v.SetDefault("node.data_dir", "data")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.cache_size", 1024)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.driver", DriverSQLite)
	v.SetDefault("history.dsn", "file:aurum-history.db?cache=shared")
	v.SetDefault("history.max_open_conns", 10)
	v.SetDefault("history.max_idle_conns", 5)
	v.SetDefault("history.conn_max_lifetime", "30m")

	v.SetDefault("rpc.enabled", true)
	v.SetDefault("rpc.enable_websocket", true)

	v.SetDefault("grpc.enabled", false)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks, including parsing every configured oracle
// key so that bad key material fails at startup rather than per-block.
func (c *Config) Validate() error {
	if _, err := c.Network(); err != nil {
		return fmt.Errorf("node.network: %w", err)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendPebble, BackendLevelDB:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Store.CacheSize <= 0 {
		return fmt.Errorf("store.cache_size must be greater than zero")
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case DriverSQLite, DriverPostgres:
		default:
			return fmt.Errorf("history.driver: unknown driver %q", c.History.Driver)
		}
		if c.History.DSN == "" {
			return fmt.Errorf("history.dsn must be set when history is enabled")
		}
	}

	if _, err := c.OracleKeys(); err != nil {
		return err
	}

	return nil
}

// Network returns the parsed chain selector.
func (c *Config) Network() (protocol.Network, error) {
	return protocol.ParseNetwork(c.Node.Network)
}

// OracleKeys resolves the configured key material into the mapping the
// validator consumes. A network configured both inline and by file is an
// error; silently preferring one would hide a misconfiguration.
func (c *Config) OracleKeys() (oracle.StaticKeys, error) {
	keys := make(oracle.StaticKeys)

	add := func(name, material string) error {
		network, err := protocol.ParseNetwork(name)
		if err != nil {
			return fmt.Errorf("oracle key: %w", err)
		}
		if _, dup := keys[network]; dup {
			return fmt.Errorf("oracle key for %s configured more than once", network)
		}
		pub, err := crypto.ParsePublicKey(material)
		if err != nil {
			return fmt.Errorf("oracle key for %s: %w", network, err)
		}
		keys[network] = pub
		return nil
	}

	for name, material := range c.Oracle.Keys {
		if err := add(name, material); err != nil {
			return nil, err
		}
	}
	for name, path := range c.Oracle.KeyFiles {
		material, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("oracle key file for %s: %w", name, err)
		}
		if err := add(name, string(material)); err != nil {
			return nil, err
		}
	}

	return keys, nil
}

// RPCAddress returns the configured RPC listen address, falling back to the
// network's default port.
func (c *Config) RPCAddress(params protocol.Params) string {
	if c.RPC.ListenAddr != "" {
		return c.RPC.ListenAddr
	}
	return fmt.Sprintf(":%d", params.DefaultRPCPort)
}

// GRPCAddress returns the configured gRPC listen address, falling back to
// loopback on the network's default port. The gRPC surface carries admin
// operations, so it never binds wide by default.
func (c *Config) GRPCAddress(params protocol.Params) string {
	if c.GRPC.ListenAddr != "" {
		return c.GRPC.ListenAddr
	}
	return fmt.Sprintf("127.0.0.1:%d", params.DefaultGRPCPort)
}

// StorePath returns the record store location, defaulting to a directory
// under the data dir.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Node.DataDir, "records")
}
