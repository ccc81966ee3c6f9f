// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/caarlos0/env/v11"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

// Config holds the settings read from the environment. Flags cover the rest.
type Config struct {
	MasterKey string `env:"SK_MASTER_KEY"`
	NATSURL   string `env:"SK_NATS_URL"`
	ArchiveDB string `env:"SK_ARCHIVE_DB"`

	RegulationInnings int `env:"SK_REGULATION_INNINGS" envDefault:"9"`
	MercyRuns         int `env:"SK_MERCY_RUNS"`
	MercyAfterInning  int `env:"SK_MERCY_AFTER_INNING"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RegulationInnings < 0 {
		return Config{}, fmt.Errorf("SK_REGULATION_INNINGS must not be negative")
	}
	if cfg.MercyRuns < 0 || cfg.MercyAfterInning < 0 {
		return Config{}, fmt.Errorf("mercy rule settings must not be negative")
	}
	return cfg, nil
}

// Rules returns the default rules for new games.
func (c Config) Rules() scoring.Rules {
	return scoring.Rules{
		RegulationInnings: c.RegulationInnings,
		MercyRuns:         c.MercyRuns,
		MercyAfterInning:  c.MercyAfterInning,
	}
}

// OpenStorage opens the data directory. With a passphrase, data is
// encrypted with the master key in dataDir/master.key, which is created on
// first use. Without one, an existing master key is an error.
func OpenStorage(dataDir, passphrase string) (*storage.Storage, error) {
	keyFile := filepath.Join(dataDir, "master.key")
	var masterKey crypto.MasterKey
	if passphrase != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		switch {
		case err == nil:
			log.Println("Loaded master encryption key.")
		case os.IsNotExist(err):
			log.Println("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("save master key: %w", err)
			}
		default:
			return nil, fmt.Errorf("read master key: %w", err)
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s exists but SK_MASTER_KEY is not set; refusing to use encrypted data unencrypted", keyFile)
		}
		log.Println("Warning: No SK_MASTER_KEY provided. Data will be stored UNENCRYPTED.")
	}
	store := storage.New(dataDir, masterKey)
	store.EnableCompression(true)
	return store, nil
}
