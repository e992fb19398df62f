package config

import (
	"os"
	"strconv"
)

type HTTPConfig struct {
	Port int
	Name string
}

func NewHTTPConfig() *HTTPConfig {
	port, err := strconv.Atoi(os.Getenv("HTTP_PORT"))
	if err != nil || port <= 0 {
		port = 8082
	}
	return &HTTPConfig{
		Port: port,
		Name: getEnv("HTTP_NAME", "dutbench"),
	}
}

type LogConfig struct {
	Level string
	// File enables a rotated JSON log file next to stderr output
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func NewLogConfig() *LogConfig {
	maxSize, err := strconv.Atoi(os.Getenv("LOG_MAX_SIZE_MB"))
	if err != nil || maxSize <= 0 {
		maxSize = 10
	}
	backups, err := strconv.Atoi(os.Getenv("LOG_MAX_BACKUPS"))
	if err != nil || backups < 0 {
		backups = 3
	}
	return &LogConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  maxSize,
		MaxBackups: backups,
	}
}
