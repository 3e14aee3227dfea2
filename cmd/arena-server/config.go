package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codearena/internal/auth"
	"codearena/internal/leaderboard"
	"codearena/internal/sandbox"
	"codearena/internal/store/db"
	"codearena/pkg/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 10 * time.Second
	// Finalize grades every answer in-request, so writes get a generous
	// ceiling.
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultGradingWorkers  = 4
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// GradingConfig holds grading pool settings.
type GradingConfig struct {
	Workers int `yaml:"workers"`
}

// AppConfig is the full server configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logger   logger.Config      `yaml:"logger"`
	Database db.Config          `yaml:"database"`
	Redis    leaderboard.Config `yaml:"redis"`
	Auth     auth.Config        `yaml:"auth"`
	Sandbox  sandbox.Config     `yaml:"sandbox"`
	Grading  GradingConfig      `yaml:"grading"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &AppConfig{
		Server:   ServerConfig{Addr: defaultHTTPAddr},
		Database: *db.DefaultConfig(),
		Grading:  GradingConfig{Workers: defaultGradingWorkers},
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Grading.Workers <= 0 {
		cfg.Grading.Workers = defaultGradingWorkers
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return cfg, nil
}
