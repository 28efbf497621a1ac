// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/LeeDigitalWorks/zapgate/pkg/iam"

	"github.com/spf13/viper"
)

// Config is a validated, immutable configuration snapshot. A reload builds a
// fresh Config and swaps it wholesale through the Provider; nothing mutates a
// Config after Load returns it.
type Config struct {
	Storage   StorageConfig    `mapstructure:"storage"`
	Region    RegionConfig     `mapstructure:"region"`
	Server    ServerConfig     `mapstructure:"server"`
	Creds     []iam.Credential `mapstructure:"credentials"`
	Multipart MultipartConfig  `mapstructure:"multipart"`
}

type StorageConfig struct {
	Location string `mapstructure:"location"`
}

type RegionConfig struct {
	Default string `mapstructure:"default"`
}

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type MultipartConfig struct {
	ExpirySeconds uint64 `mapstructure:"expiry_seconds"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(v)
}

func parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Storage.Location == "" {
		return errors.New("storage.location must not be empty")
	}
	if c.Region.Default == "" {
		return errors.New("region.default must not be empty")
	}
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return errors.New("server.http.port must be between 1 and 65535")
	}
	if len(c.Creds) == 0 {
		return errors.New("at least one credential must be defined")
	}
	for _, cred := range c.Creds {
		if cred.AccessKey == "" || cred.SecretKey == "" {
			return errors.New("credential access_key and secret_key must not be empty")
		}
	}
	if c.Multipart.ExpirySeconds == 0 {
		return errors.New("multipart.expiry_seconds must be > 0")
	}
	return nil
}
