// cmd/flyplan/config.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration of the flyplan CLI.
type Config struct {
	Nav   NavConfig   `toml:"nav"`
	Route RouteConfig `toml:"route"`
	Log   LogConfig   `toml:"log"`
}

type NavConfig struct {
	// Database is the navigation database path: .json, .json.zst, or a
	// SQLite file.
	Database string `toml:"database"`
	// Validate cross-checks the loaded data and reports broken
	// references before any planning.
	Validate bool `toml:"validate"`
}

type RouteConfig struct {
	// MaxDistanceDirectRatio rejects calculated routes longer than this
	// multiple of the direct distance; 0 selects the default.
	MaxDistanceDirectRatio float32 `toml:"max_distance_direct_ratio"`
	PreferVORToAirway      bool    `toml:"prefer_vor_to_airway"`
	PreferNDBToAirway      bool    `toml:"prefer_ndb_to_airway"`
	CruiseAltitude         int     `toml:"cruise_altitude"` // feet
	VFR                    bool    `toml:"vfr"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Dir   string `toml:"dir"`   // empty for the platform default
}

func LoadConfig(path string) (Config, error) {
	config := Config{
		Route: RouteConfig{CruiseAltitude: 10000},
		Log:   LogConfig{Level: "info"},
	}
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, err
	}
	return config, nil
}
