package peer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/robotalks/winot.go/pkg/peer/store"
)

// Config configures the emulator. The file format is JSON with comments
// and trailing commas allowed.
type Config struct {
	// Listen lists the endpoint URLs to serve.
	Listen []string `json:"listen"`
	// IP is reported on successful network joins.
	IP string `json:"ip"`
	// RejectConnects fails the first N network joins.
	RejectConnects int `json:"reject_connects"`
	// RedisAddr selects the Redis store, memory otherwise.
	RedisAddr   string `json:"redis_addr"`
	RedisPrefix string `json:"redis_prefix"`
	// MQTTURL mirrors writes to an MQTT broker when set.
	// e.g. mqtt://localhost:1883/winot/
	MQTTURL string `json:"mqtt_url"`
}

// DefaultConfig returns the defaults, overridden by WINOT_PEER_REDIS and
// WINOT_PEER_MQTT.
func DefaultConfig() Config {
	return Config{
		Listen:      []string{"tcp://localhost:5760"},
		IP:          "192.168.4.2",
		RedisAddr:   os.Getenv("WINOT_PEER_REDIS"),
		RedisPrefix: store.DefaultRedisPrefix,
		MQTTURL:     os.Getenv("WINOT_PEER_MQTT"),
	}
}

// ParseConfig overlays a config document on the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	std, err := hujson.Standardize(data)
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err = json.Unmarshal(std, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a config file, or returns the defaults when path is empty.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// NewStore creates the configured Store.
func (c *Config) NewStore() store.Store {
	if c.RedisAddr != "" {
		s := store.NewRedisStore(c.RedisAddr)
		if c.RedisPrefix != "" {
			s.Prefix = c.RedisPrefix
		}
		return s
	}
	return store.NewMemoryStore()
}

// NewModule creates the Module with the configured Store.
func (c *Config) NewModule() *Module {
	m := NewModule(c.NewStore(), c.IP)
	m.RejectConnects = c.RejectConnects
	return m
}
