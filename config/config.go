package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Game        GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	WSAddress      string `mapstructure:"ws_address"`
	APIAddress     string `mapstructure:"api_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GameConfig carries the Andar Bahar table rules. Amounts are in minor
// currency units.
type GameConfig struct {
	MinBet           int64   `mapstructure:"min_bet"`
	MaxBet           int64   `mapstructure:"max_bet"`
	PayoutMultiplier float64 `mapstructure:"payout_multiplier"`
	CountdownSeconds int     `mapstructure:"countdown_seconds"`
	StateTTLSeconds  int     `mapstructure:"state_ttl_seconds"`
}

func (g GameConfig) StateTTL() time.Duration {
	return time.Duration(g.StateTTLSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("environment", "development")
	viper.SetDefault("server.ws_address", ":8080")
	viper.SetDefault("server.api_address", ":8081")
	viper.SetDefault("server.rpc_address", ":9090")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.min_bet", 1000)
	viper.SetDefault("game.max_bet", 100000)
	viper.SetDefault("game.payout_multiplier", 2.0)
	viper.SetDefault("game.countdown_seconds", 30)
	viper.SetDefault("game.state_ttl_seconds", 3600)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// Defaults plus environment variables are enough to run.
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
