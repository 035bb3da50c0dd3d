// Package config loads the optional TOML configuration recognized by the
// signing engine (§9's Design Notes): the RFC 3161 timestamp authority URL,
// and default /Prop_Build-adjacent signer info used when a caller doesn't
// supply its own per-user values.
package config

import (
	"log"
	"os"

	"github.com/BurntSushi/toml"
)

var (
	// DefaultLocation is where Read looks when the caller doesn't pass an
	// explicit path.
	DefaultLocation string = "./pdfsign.conf"
	// Settings holds the most recently loaded configuration. Populated
	// once by Read; zero value is a valid "no config file" default.
	Settings Config
)

// Config is the root of the config file.
type Config struct {
	// TimestampURL, if set, is passed as the TSA URL for every signing
	// round unless a caller overrides it on a per-signer basis.
	TimestampURL string `toml:"timestamp_url"`
	Info         Info   `toml:"info"`
}

// Info carries defaults for the signer-info fields of a signature (§4.7).
// Date is deliberately absent: it is always stamped at signing time, never
// configured.
type Info struct {
	Name     string `toml:"name"`
	Location string `toml:"location"`
	Reason   string `toml:"reason"`
}

// Read loads configfile into Settings, replacing whatever was loaded
// before. A missing file is fatal, matching digitorus/pdfsign's own
// config.Read.
func Read(configfile string) {
	if _, err := os.Stat(configfile); err != nil {
		log.Fatal("Config file is missing: ", configfile)
	}

	var c Config
	if _, err := toml.DecodeFile(configfile, &c); err != nil {
		log.Fatal("Failed to parse config file: ", err)
	}

	Settings = c
}
