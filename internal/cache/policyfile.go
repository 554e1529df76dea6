package cache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk override format for header strategies. TTLs are
// duration strings ("90s", "5m") so operators never count nanoseconds.
type policyFile struct {
	Strategies []policyFileStrategy `yaml:"strategies"`
}

type policyFileStrategy struct {
	Name            string `yaml:"name"`
	CacheControl    string `yaml:"cache_control"`
	CDNCacheControl string `yaml:"cdn_cache_control"`
	Vary            string `yaml:"vary"`
	TTL             string `yaml:"ttl"`
	UserScoped      bool   `yaml:"user_scoped"`
}

// LoadPolicyFile parses strategy overrides from a YAML file. Entries replace
// same-named defaults when merged; new names add strategies.
func LoadPolicyFile(path string) ([]Strategy, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- Policy path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}
	return ParsePolicyFile(path, data)
}

// ParsePolicyFile parses and validates policy override bytes.
func ParsePolicyFile(source string, data []byte) ([]Strategy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", source, err)
	}

	strategies := make([]Strategy, 0, len(file.Strategies))
	for i, raw := range file.Strategies {
		if raw.Name == "" {
			return nil, fmt.Errorf("policy file %s: strategy %d missing name", source, i)
		}

		var ttl time.Duration
		if raw.TTL != "" {
			parsed, err := time.ParseDuration(raw.TTL)
			if err != nil {
				return nil, fmt.Errorf("policy file %s: strategy %q: invalid ttl %q: %w", source, raw.Name, raw.TTL, err)
			}
			if parsed < 0 {
				return nil, fmt.Errorf("policy file %s: strategy %q: negative ttl", source, raw.Name)
			}
			ttl = parsed
		}

		strategies = append(strategies, Strategy{
			Name:            raw.Name,
			CacheControl:    raw.CacheControl,
			CDNCacheControl: raw.CDNCacheControl,
			Vary:            raw.Vary,
			TTL:             ttl,
			UserScoped:      raw.UserScoped,
		})
	}
	return strategies, nil
}
