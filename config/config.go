// Package config loads the request service configuration from a YAML file,
// an optional dotenv file and REQUESTNET_* environment variables, in that
// order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

const DefaultEnvFile = ".env"

// Default returns the configuration used for unset fields.
func Default() *types.Config {
	return &types.Config{
		Store:          types.StoreConfig{Kind: types.StoreMemory},
		DefaultTimeout: 5 * time.Minute,
		LogLevel:       "info",
	}
}

// Load reads path (skipped when empty), then the given env files, defaulting
// to DefaultEnvFile, then the process environment. A missing env file is not
// an error. The result is validated.
func Load(path string, envFiles ...string) (*types.Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(cfg *types.Config) error {
	if err := utils.Validator().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
