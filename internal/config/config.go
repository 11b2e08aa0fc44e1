package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the optional balance cache. An empty Addr disables
// caching entirely.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:""`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_CACHE_TTL" envDefault:"1m"`
}

// OTPConfig configures the WhatsApp OTP gateway. An empty URL disables OTP
// delivery; signup then skips the verification message.
type OTPConfig struct {
	GatewayURL string `env:"OTP_GATEWAY_URL" envDefault:""`
	APIKey     string `env:"OTP_API_KEY" envDefault:""`
}
