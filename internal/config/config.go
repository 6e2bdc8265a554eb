package config

type Config struct {
	LogLevel      string `flag:"log-level"`
	DatabaseURL   string `flag:"database-url"`
	ListenAddr    string `flag:"listen-addr"`
	MetricsAddr   string `flag:"metrics-addr"`
	NATSURL       string `flag:"nats-url"`
	NATSInit      bool   `flag:"nats-init"`
	MaxPostLength int    `flag:"max-post-length"`
}
