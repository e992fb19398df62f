package config

// PostgresConfig points at the outcome history database. An empty Url disables it.
type PostgresConfig struct {
	Url string
}

func NewPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Url: getEnv("DATABASE_URL", ""),
	}
}
