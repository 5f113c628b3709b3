/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config handles loading and validating console configuration.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cybertwin/console/pkg/logger"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errLoadConfigFailed    = errors.New("failed to load configuration")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"
)

// ConfigLoader loads configuration into dst from a source identified by path.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a Config with a default file loader. A nil logger
// gets a no-op replacement so config loading never fails on logging.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
	}
}

// LoadAndValidate loads a configuration and validates it when the target
// implements Validate() error. CONFIG_SOURCE selects the loader:
// "file" (default) reads a JSON file, "env" reads CONFIG_JSON.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	source := os.Getenv("CONFIG_SOURCE")

	var loader ConfigLoader

	switch source {
	case "", configSourceFile:
		loader = c.defaultLoader
	case configSourceEnv:
		loader = &EnvConfigLoader{}
	default:
		return fmt.Errorf("%w: %q", errInvalidConfigSource, source)
	}

	if err := loader.Load(ctx, path, cfg); err != nil {
		return fmt.Errorf("%w: %w", errLoadConfigFailed, err)
	}

	c.logger.Debug().Str("path", path).Str("source", source).Msg("Configuration loaded")

	return ValidateConfig(cfg)
}

// ValidateConfig validates the config if it implements Validate() error.
func ValidateConfig(cfg interface{}) error {
	if v, ok := cfg.(interface{ Validate() error }); ok {
		return v.Validate()
	}

	return nil
}

// FileConfigLoader is the default loader: one JSON document on disk.
type FileConfigLoader struct{}

// Load reads path and unmarshals it into dst.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}
