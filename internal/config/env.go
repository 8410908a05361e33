package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// StorageEnv overrides the setup file's output section, so the same config
// directory can target different destinations per environment.
type StorageEnv struct {
	Type     string `envconfig:"STORAGE_TYPE"`
	BaseDir  string `envconfig:"STORAGE_BASE_DIR"`
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX"`
	S3Region string `envconfig:"S3_REGION"`
}

type Env struct {
	BaseEnv
	StorageEnv
}

const namespace = "SPRINTSCHEDULER"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ApplyOutputOverrides folds non-empty env values onto the loaded output
// configuration.
func (e *StorageEnv) ApplyOutputOverrides(out *OutputConfig) {
	if e == nil {
		return
	}
	if e.Type != "" {
		out.Type = e.Type
	}
	if e.BaseDir != "" {
		out.Dir = e.BaseDir
	}
	if e.S3Bucket != "" {
		out.S3Bucket = e.S3Bucket
	}
	if e.S3Prefix != "" {
		out.S3Prefix = e.S3Prefix
	}
	if e.S3Region != "" {
		out.S3Region = e.S3Region
	}
}
