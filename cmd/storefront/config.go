package main

import (
	"github.com/spf13/pflag"

	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
)

// Config is read from the environment first; global flags override it.
type Config struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL"`
	APIURL       string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8080/api"`
	StateFile    string `env:"STOREFRONT_STATE_FILE" envDefault:".storefront/state.json"`
	StateMaxSize int    `env:"STOREFRONT_STATE_MAX_BYTES" envDefault:"5242880"`
	RemotesFile  string `env:"STOREFRONT_REMOTES_FILE"`
	APICacheSize int    `env:"STOREFRONT_API_CACHE_SIZE" envDefault:"256"`

	Redis kvstore.RedisConfig
	HTTP  httpserver.Config
}

type globalFlags struct {
	envFile     string
	apiURL      string
	stateFile   string
	redisURL    string
	remotesFile string
	logLevel    string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.envFile, "env-file", "", "additional .env file to load")
	fs.StringVar(&g.apiURL, "api-url", "", "backend base URL (STOREFRONT_API_URL)")
	fs.StringVar(&g.stateFile, "state-file", "", "client state file (STOREFRONT_STATE_FILE)")
	fs.StringVar(&g.redisURL, "redis-url", "", "keep client state in redis instead of a file (STOREFRONT_REDIS_URL)")
	fs.StringVar(&g.remotesFile, "remotes", "", "remote registry YAML file (STOREFRONT_REMOTES_FILE)")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
}

// apply copies the flags that were set on the command line into cfg.
func (g *globalFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("api-url") {
		cfg.APIURL = g.apiURL
	}
	if fs.Changed("state-file") {
		cfg.StateFile = g.stateFile
	}
	if fs.Changed("redis-url") {
		cfg.Redis.URL = g.redisURL
	}
	if fs.Changed("remotes") {
		cfg.RemotesFile = g.remotesFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
}
