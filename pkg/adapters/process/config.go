package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes an external command exposed as a function.
type Config struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of functions.yaml.
type ConfigFile struct {
	Functions []Config `yaml:"functions" json:"functions"`
}

// LoadConfig reads a configuration file (YAML or JSON, by extension) and
// returns the configs by name. A missing file yields no configs.
func LoadConfig(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return nil, fmt.Errorf("failed to read functions config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	out := make(map[string]Config, len(cfg.Functions))
	for _, c := range cfg.Functions {
		if c.Name == "" {
			return nil, fmt.Errorf("function without a name in %s", filepath.Base(path))
		}
		if c.Command == "" {
			return nil, fmt.Errorf("function %q has no command", c.Name)
		}
		out[c.Name] = c
	}
	return out, nil
}
