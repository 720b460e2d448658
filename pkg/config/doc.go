// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tags) behind a single generic Load
// function. Values are parsed on every call so command line flags applied
// afterwards always see fresh defaults.
package config
