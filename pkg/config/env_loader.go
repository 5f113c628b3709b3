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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var errConfigJSONNotSet = errors.New("CONFIG_SOURCE=env but CONFIG_JSON is empty")

// EnvConfigLoader loads a complete JSON configuration from the
// CONFIG_JSON environment variable. Useful for containerized runs where
// mounting a config file is inconvenient.
type EnvConfigLoader struct{}

// Load implements ConfigLoader by unmarshaling CONFIG_JSON.
func (*EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	jsonConfig := os.Getenv("CONFIG_JSON")
	if jsonConfig == "" {
		return errConfigJSONNotSet
	}

	if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
		return fmt.Errorf("failed to unmarshal CONFIG_JSON: %w", err)
	}

	return nil
}
