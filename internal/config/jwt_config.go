package config

import "os"

// JwtConfig protects the status API. An empty Secret leaves it open.
type JwtConfig struct {
	Secret string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
	}
}
