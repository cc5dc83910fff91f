package postgres

type (
	// Fields must stay exported for env parsing.
	PostgresConfig struct {
		WriteConfig PoolConfig   `envPrefix:"PRIMARY_"`
		ReadConfigs []PoolConfig `envPrefix:"REPLICA_"`

		// MigrationsDir is where GenerateMigration writes new files.
		MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	}

	PoolConfig struct {
		Host         string `env:"HOST"     envDefault:"localhost"`
		Port         uint16 `env:"PORT"     envDefault:"5432"`
		User         string `env:"USER"     envDefault:"postgres"`
		Password     string `env:"PASSWORD" envDefault:"postgres"`
		Database     string `env:"DATABASE" envDefault:"postgres"`
		SSLMode      string `env:"SSL_MODE" envDefault:"disable"`
		PoolMaxConns int    `env:"POOL_MAX_CONNS" envDefault:"5"`
	}
)
