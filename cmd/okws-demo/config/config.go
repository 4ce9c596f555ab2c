// Package config loads the okws-demo CLI's optional YAML override file,
// grounded on the env/flag precedence arkeep-io-arkeep's agent/cmd/agent
// main.go uses (envOrDefault), generalized to a third layer — a YAML file —
// since a demo client juggling headers, a heartbeat payload, and JWT
// claims has too much structure for flags alone.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to accept YAML scalars written the way a
// human would ("15s", "1m30s") instead of a raw integer nanosecond count,
// which plain time.Duration fields require from yaml.v3.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or a bare integer (read
// as nanoseconds, matching time.Duration's own zero-value unit).
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"15s\" or an integer nanosecond count: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// File is the on-disk shape of the demo's --config file. Every field is
// optional. url, ping_interval, heartbeat.request_text and jwt.secret are
// used only when the matching flag is unset; log_level, heartbeat
// interval/timeout and jwt subject/issuer/ttl replace the flag values
// whenever the file sets them.
type File struct {
	URL          string            `yaml:"url"`
	Headers      map[string]string `yaml:"headers"`
	PingInterval Duration          `yaml:"ping_interval"`
	LogLevel     string            `yaml:"log_level"`

	Heartbeat *HeartbeatFile `yaml:"heartbeat"`
	JWT       *JWTFile       `yaml:"jwt"`
}

// HeartbeatFile configures the demo's application-level heartbeat.
type HeartbeatFile struct {
	Interval    Duration `yaml:"interval"`
	Timeout     Duration `yaml:"timeout"`
	RequestText string   `yaml:"request_text"`
}

// JWTFile configures the bearer token the demo attaches to its Connect
// headers, signed locally with a shared secret (see package authheader).
type JWTFile struct {
	Secret  string   `yaml:"secret"`
	Subject string   `yaml:"subject"`
	Issuer  string   `yaml:"issuer"`
	TTL     Duration `yaml:"ttl"`
}

// Load reads and parses a YAML file at path. A missing path is not an
// error — it returns a zero File so the caller falls back to flag
// defaults entirely.
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("okws-demo: reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("okws-demo: parsing config %s: %w", path, err)
	}
	return f, nil
}
