package config

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	JWT      JWT
	Gemini   Gemini
	Attempt  Attempt
	Log      Log
}

type Server struct {
	Port    string
	GinMode string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Redis is optional; an empty Addr disables the test definition cache.
type Redis struct {
	Addr         string
	Password     string
	DB           int
	TestCacheTTL time.Duration
}

type JWT struct {
	Secret string
}

type Gemini struct {
	ApiKey string
	Model  string
}

type Attempt struct {
	// SubmitGracePeriod is added to the test duration before a submit is flagged late.
	SubmitGracePeriod time.Duration
}

type Log struct {
	Level  string
	Format string // "console" or "json"
}

func NewConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load reads .env from --config-path (default ".") and the environment.
// --port overrides SERVER_PORT.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("question-bank", pflag.ContinueOnError)
	configPath := flags.String("config-path", ".", "directory containing the .env file")
	port := flags.String("port", "", "HTTP port, overrides SERVER_PORT")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(*configPath)
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TEST_CACHE_TTL", "5m")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("SUBMIT_GRACE_PERIOD", "2m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = v.GetString("SERVER_PORT")
	if *port != "" {
		config.Server.Port = *port
	}
	config.Server.GinMode = v.GetString("GIN_MODE")

	config.Database.Host = v.GetString("DATABASE_HOST")
	config.Database.Port = v.GetString("DATABASE_PORT")
	config.Database.User = v.GetString("DATABASE_USER")
	config.Database.Password = v.GetString("DATABASE_PASSWORD")
	config.Database.Name = v.GetString("DATABASE_NAME")
	config.Database.SSLMode = v.GetString("DATABASE_SSLMODE")

	config.Redis.Addr = v.GetString("REDIS_ADDR")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.TestCacheTTL = v.GetDuration("TEST_CACHE_TTL")

	config.JWT.Secret = v.GetString("JWT_SECRET")

	config.Gemini.ApiKey = v.GetString("GEMINI_API_KEY")
	config.Gemini.Model = v.GetString("GEMINI_MODEL")

	config.Attempt.SubmitGracePeriod = v.GetDuration("SUBMIT_GRACE_PERIOD")

	config.Log.Level = v.GetString("LOG_LEVEL")
	config.Log.Format = v.GetString("LOG_FORMAT")

	log.Info().
		Str("port", config.Server.Port).
		Str("dbHost", config.Database.Host).
		Str("dbName", config.Database.Name).
		Bool("redis", config.Redis.Addr != "").
		Bool("gemini", config.Gemini.ApiKey != "").
		Msg("Config loaded")
	return &config, nil
}
