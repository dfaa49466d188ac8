package config

import "time"

// Default values.
const (
	DefaultAPIURL          = "http://localhost:3000/api"
	DefaultProjectURL      = "http://127.0.0.1:54321/"
	DefaultPort            = 3005
	DefaultHost            = "0.0.0.0"
	DefaultAPITimeout      = 10 * time.Second
	DefaultSessionTokenTTL = time.Hour
	DefaultCORSMaxAge      = 24 * time.Hour
	DefaultMetricsAddr     = ":9090"
)

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		TaskFlow: TaskFlowConfig{
			APIURL:  DefaultAPIURL,
			Timeout: Duration{DefaultAPITimeout},
		},
		Auth: AuthConfig{
			ProjectURL:      DefaultProjectURL,
			RequireToken:    true,
			SessionTokenTTL: Duration{DefaultSessionTokenTTL},
		},
		Server: ServerConfig{
			Transport: TransportStreamableHTTP,
			Host:      DefaultHost,
			Port:      DefaultPort,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				MaxAge:         Duration{DefaultCORSMaxAge},
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
