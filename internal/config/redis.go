package config

import (
	"os"
	"strconv"
)

// RedisConfig points at the run progress store. An empty Url disables it.
type RedisConfig struct {
	DB       int
	Url      string
	Password string
}

func NewRedisConfig() *RedisConfig {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		db = 0
	}
	return &RedisConfig{
		DB:       db,
		Url:      getEnv("REDIS_ADDR", ""),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}
