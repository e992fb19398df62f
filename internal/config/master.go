package config

import "os"

type AppConfig struct {
	DebugMode      bool
	DutServerCfg   *DutServerCfg
	ClientCfg      *ClientCfg
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	HTTPConfig     *HTTPConfig
	LogConfig      *LogConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		DutServerCfg:   NewDutServerCfg(),
		ClientCfg:      NewClientCfg(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		HTTPConfig:     NewHTTPConfig(),
		LogConfig:      NewLogConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
