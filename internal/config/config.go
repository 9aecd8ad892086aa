package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Origins    []string `yaml:"origins" env:"ORIGINS" env-separator:","`
	Redis      Redis    `yaml:"redis"`
	Postgres   Postgres `yaml:"postgres"`
	Game       Game     `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Postgres holds the results archive connection. An empty DSN disables the archive.
type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

type Game struct {
	RevealWindow  time.Duration `yaml:"reveal-window" env:"REVEAL_WINDOW" env-default:"1500ms"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"SWEEP_INTERVAL" env-default:"1s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
