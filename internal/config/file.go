package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadFile overlays a YAML workspace file onto cfg. Keys missing from the
// file keep their current values. ${VAR} placeholders are expanded from the
// environment and left untouched when VAR is unset.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnv(raw)
	if len(bytes.TrimSpace(expanded)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func expandEnv(raw []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envPlaceholder.FindSubmatch(match)[1]
		if v, ok := os.LookupEnv(string(name)); ok {
			return []byte(v)
		}
		return match
	})
}
