package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL"`
	APIKey      string `env:"API_KEY"`

	Erp    Erp    `envPrefix:"ERP_"`
	Outbox Outbox `envPrefix:"OUTBOX_"`
}

type Erp struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	TokenURL     string `env:"TOKEN_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Account      string `env:"ACCOUNT" envDefault:"default"`

	// Remote status ids the checkout flow transitions orders through.
	// These are tenant-specific in the ERP, hence configured.
	StatusPartialID  int32 `env:"STATUS_PARTIAL_ID" envDefault:"15"`
	StatusCompleteID int32 `env:"STATUS_COMPLETE_ID" envDefault:"9"`

	PageInterval time.Duration `env:"PAGE_INTERVAL" envDefault:"350ms"`
	StepPause    time.Duration `env:"STEP_PAUSE" envDefault:"500ms"`
}

type Outbox struct {
	Interval    time.Duration `env:"INTERVAL" envDefault:"5s"`
	BatchSize   int           `env:"BATCH_SIZE" envDefault:"20"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
