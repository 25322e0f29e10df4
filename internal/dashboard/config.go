package dashboard

import "time"

// Config holds the dashboard configuration loaded from environment variables.
type Config struct {
	// Addr is the listen address. An empty value disables the dashboard.
	Addr         string        `env:"DASHBOARD_ADDR"          envDefault:":3000"`
	BaseURL      string        `env:"DASHBOARD_BASE_URL"      envDefault:"http://localhost:3000"`
	ClientID     string        `env:"DISCORD_CLIENT_ID"`
	ClientSecret string        `env:"DISCORD_CLIENT_SECRET"`
	SessionTTL   time.Duration `env:"DASHBOARD_SESSION_TTL"   envDefault:"24h"`
	CookieSecure bool          `env:"DASHBOARD_COOKIE_SECURE" envDefault:"false"`
	// ControlRate is the number of state-changing API calls a user may make per second.
	ControlRate   float64       `env:"DASHBOARD_CONTROL_RATE"   envDefault:"2"`
	ControlBurst  int           `env:"DASHBOARD_CONTROL_BURST"  envDefault:"5"`
	StatsInterval time.Duration `env:"DASHBOARD_STATS_INTERVAL" envDefault:"5s"`
}

// Enabled reports whether the dashboard should be started.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// OAuthConfigured reports whether Discord login is possible.
func (c Config) OAuthConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
