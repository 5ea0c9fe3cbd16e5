package config

import "time"

type Config struct {
	APIURL    string        `flag:"api-url"`
	Token     string        `flag:"token"`
	UserID    string        `flag:"user-id"`
	PageSize  int           `flag:"page-size"`
	Timeout   time.Duration `flag:"timeout"`
	RateLimit float64       `flag:"rate-limit"`
	LogLevel  string        `flag:"log-level"`
	Pretty    bool          `flag:"pretty"`
	Yes       bool          `flag:"yes"`

	MetricsAddr     string        `flag:"metrics-addr"`
	RefreshInterval time.Duration `flag:"refresh-interval"`
}
