package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/blockpass/internal/flagx"
	"github.com/dmitrijs2005/blockpass/internal/timex"
)

// JsonConfig is the JSON shape of Config. Every field is optional: only keys
// present in the file override the current value. Durations accept "1m" or
// integer nanoseconds.
type JsonConfig struct {
	Backend                     *string         `json:"backend"`
	FileDir                     *string         `json:"file_dir"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	SigningAlgorithm            *string         `json:"signing_algorithm"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	KDFMemoryKiB                *int            `json:"kdf_mem_kib"`
	KDFTimeCost                 *int            `json:"kdf_time_cost"`
	KDFParallelism              *int            `json:"kdf_lanes"`
	KDFSaltLength               *int            `json:"kdf_salt_length"`
	BcryptCost                  *int            `json:"bcrypt_cost"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// BLOCKPASS_CONFIG environment variable). Without a file it does nothing.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.Backend, c.Backend)
	setString(&config.FileDir, c.FileDir)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setInt(&config.KDFMemoryKiB, c.KDFMemoryKiB)
	setInt(&config.KDFTimeCost, c.KDFTimeCost)
	setInt(&config.KDFParallelism, c.KDFParallelism)
	setInt(&config.KDFSaltLength, c.KDFSaltLength)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
