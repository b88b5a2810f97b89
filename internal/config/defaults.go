package config

// ApplyDefaults sets the baseline configuration. YAML unmarshalling and
// environment overrides are applied on top of these values.
func ApplyDefaults(cfg *Config) {
	// --- Log ---
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	// --- Server ---
	cfg.Server.ListenAddress = ":9464"

	// --- Store ---
	cfg.Store.Backend = BackendSQLite
	cfg.Store.SQLite.Path = "userstate.db"
	cfg.Store.Redis.KeyPrefix = "userstate:pref:"
	cfg.Store.NATS.Bucket = "userstate"
	cfg.Store.Postgres.Table = "user_preferences"
	cfg.Store.Postgres.MaxConns = 4

	// --- Collector ---
	cfg.Collector.Enabled = true
	cfg.Collector.IntervalSeconds = 60
}
