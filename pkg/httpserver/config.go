package httpserver

import "time"

// Config is the env-driven server configuration.
type Config struct {
	Addr            string        `env:"STOREFRONT_ADDR" envDefault:":3000"`
	ReadTimeout     time.Duration `env:"STOREFRONT_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"STOREFRONT_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"STOREFRONT_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server from cfg; zero fields keep the defaults and
// opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 5+len(opts))
	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		configOpts = append(configOpts, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	return New(append(configOpts, opts...)...)
}
