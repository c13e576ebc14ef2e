/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/tablestore/storagemodels"
)

// Config is the complete tablestore configuration.
type Config struct {
	AWS        AWS        `yaml:"aws"`
	Tables     Tables     `yaml:"tables"`
	Pagination Pagination `yaml:"pagination"`
	Retry      Retry      `yaml:"retry"`
	Schema     Schema     `yaml:"schema"`
	Log        Log        `yaml:"log"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// AWS holds client settings. Endpoint points at DynamoDB Local when set.
type AWS struct {
	Region    string `yaml:"region" validate:"required"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"accessKey" validate:"required_with=SecretKey"`
	SecretKey string `yaml:"secretKey" validate:"required_with=AccessKey"`
}

type Tables struct {
	// Prefix is prepended to every table name, e.g. "dev-".
	Prefix string `yaml:"prefix" validate:"excludes=#"`
}

type Pagination struct {
	DefaultSize int `yaml:"defaultSize" validate:"gt=0,ltefield=MaxSize"`
	MaxSize     int `yaml:"maxSize" validate:"gt=0,lte=1000"`
}

// Limits returns the page limits of the section.
func (p Pagination) Limits() storagemodels.PageLimits {
	return storagemodels.PageLimits{Default: p.DefaultSize, Max: p.MaxSize}
}

type Retry struct {
	MaxAttempts     uint          `yaml:"maxAttempts" validate:"gte=1"`
	InitialInterval time.Duration `yaml:"initialInterval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"maxInterval" validate:"gtefield=InitialInterval"`
}

// Schema controls table creation. Zero capacities select on-demand billing.
type Schema struct {
	ReadCapacity  int64         `yaml:"readCapacity" validate:"gte=0"`
	WriteCapacity int64         `yaml:"writeCapacity" validate:"gte=0"`
	WaitTimeout   time.Duration `yaml:"waitTimeout" validate:"gt=0"`
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		AWS: AWS{Region: "us-east-1"},
		Pagination: Pagination{
			DefaultSize: storagemodels.DefaultPageSize,
			MaxSize:     storagemodels.MaxPageSize,
		},
		Retry: Retry{
			MaxAttempts:     5,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     200 * time.Millisecond,
		},
		Schema: Schema{WaitTimeout: 2 * time.Minute},
		Log:    Log{Level: "info"},
	}
}

// Load builds the configuration. The loading order (from lowest to highest priority):
//  1. Default values
//  2. The YAML file at path, when path is not empty
//  3. A .env file in the working directory, when present
//  4. Environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err == nil {
		cfg.LoadedFrom = append(cfg.LoadedFrom, ".env")
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.loadEnvironmentVariables(); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironmentVariables() error {
	if val := os.Getenv("AWS_REGION"); val != "" {
		c.AWS.Region = val
	}
	if val := os.Getenv("AWS_ACCESS_KEY"); val != "" {
		c.AWS.AccessKey = val
	}
	if val := os.Getenv("AWS_SECRET_KEY"); val != "" {
		c.AWS.SecretKey = val
	}
	if val := os.Getenv("AWS_DDB_ENDPOINT"); val != "" {
		c.AWS.Endpoint = val
	}
	if val, ok := os.LookupEnv("TABLESTORE_TABLE_PREFIX"); ok {
		c.Tables.Prefix = val
	}
	if val := os.Getenv("TABLESTORE_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("TABLESTORE_LOG_DEVELOPMENT"); val != "" {
		dev, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid TABLESTORE_LOG_DEVELOPMENT %q: %w", val, err)
		}
		c.Log.Development = dev
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
