// Package config loads and validates the relay's on-disk JSON
// configuration via viper's Unmarshal-then-Validate pattern.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"

	"github.com/odyssey-relay/server/pkg/wire"
)

// FlipPOV selects which audience sees a flipped avatar.
type FlipPOV string

const (
	FlipSelfOnly   FlipPOV = "self-only"
	FlipOthersOnly FlipPOV = "others-only"
	FlipBoth       FlipPOV = "both"
)

type ServerConfig struct {
	Address    string `mapstructure:"address"`
	Port       int    `mapstructure:"port"`
	MaxPlayers int    `mapstructure:"max_players"`
}

type ScenarioConfig struct {
	MergeEnabled bool `mapstructure:"merge_enabled"`
}

type FlipConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Players []string `mapstructure:"players"`
	POV     FlipPOV  `mapstructure:"pov"`
}

type BanListConfig struct {
	Players []string `mapstructure:"players"`
	IPs     []string `mapstructure:"ips"`
}

type ShinesConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the full set of externally supplied settings. The relay core
// only ever reads this value; this package does not write it back to
// disk.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Flip     FlipConfig     `mapstructure:"flip"`
	BanList  BanListConfig  `mapstructure:"ban_list"`
	Shines   ShinesConfig   `mapstructure:"shines"`
	Debug    bool           `mapstructure:"debug"`

	path string `mapstructure:"-"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 1027)
	v.SetDefault("server.max_players", 8)
	v.SetDefault("scenario.merge_enabled", false)
	v.SetDefault("flip.enabled", false)
	v.SetDefault("flip.pov", string(FlipOthersOnly))
	v.SetDefault("shines.enabled", true)
}

// Load reads and unmarshals the JSON configuration document at path. A
// missing or malformed file is a fatal configuration error; the caller
// is expected to exit the process on a non-nil error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	cfg.path = path

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks a Config for internally consistent, usable values.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.MaxPlayers <= 0 || cfg.Server.MaxPlayers > 65535 {
		return fmt.Errorf("server.max_players out of range: %d", cfg.Server.MaxPlayers)
	}
	if net.ParseIP(cfg.Server.Address) == nil && cfg.Server.Address != "" && cfg.Server.Address != "localhost" {
		return fmt.Errorf("server.address is not a valid bind address: %q", cfg.Server.Address)
	}
	switch cfg.Flip.POV {
	case "", FlipSelfOnly, FlipOthersOnly, FlipBoth:
	default:
		return fmt.Errorf("flip.pov invalid: %q", cfg.Flip.POV)
	}
	for _, p := range cfg.Flip.Players {
		if _, err := wire.ParseID(p); err != nil {
			return fmt.Errorf("flip.players entry %q: %w", p, err)
		}
	}
	for _, p := range cfg.BanList.Players {
		if _, err := wire.ParseID(p); err != nil {
			return fmt.Errorf("ban_list.players entry %q: %w", p, err)
		}
	}
	for _, ip := range cfg.BanList.IPs {
		if net.ParseIP(strings.TrimSpace(ip)) == nil {
			return fmt.Errorf("ban_list.ips entry %q is not a valid IP", ip)
		}
	}
	return nil
}

// FlipPlayerIDs returns the configured flip target set, parsed. Callers
// that already validated the config may ignore the error.
func (c *Config) FlipPlayerIDs() ([]wire.ID, error) {
	ids := make([]wire.ID, 0, len(c.Flip.Players))
	for _, p := range c.Flip.Players {
		id, err := wire.ParseID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BanListIDs returns the configured banned-player set, parsed.
func (c *Config) BanListIDs() ([]wire.ID, error) {
	ids := make([]wire.ID, 0, len(c.BanList.Players))
	for _, p := range c.BanList.Players {
		id, err := wire.ParseID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
