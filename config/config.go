package config

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Name        string `mapstructure:"name"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Pool        int    `mapstructure:"pool"`
	SSLMode     string `mapstructure:"ssl_mode"`
	SlowQueryMs int    `mapstructure:"slow_query_ms"`

	// Replica, when set, receives read-tagged statements. Writes and
	// transactions always go to the primary.
	Replica ReplicaConfig `mapstructure:"replica"`
}

type ReplicaConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Pool     int    `mapstructure:"pool"`
}

// Enabled reports whether a read replica is configured.
func (r ReplicaConfig) Enabled() bool {
	return r.Host != ""
}

type RedisConfig struct {
	URL  string `mapstructure:"url"`
	Pool int    `mapstructure:"pool"`
	DB   int    `mapstructure:"db"`
}

type CacheConfig struct {
	Adapter string `mapstructure:"adapter"`
	TTL     int    `mapstructure:"ttl"`
	Prefix  string `mapstructure:"prefix"`
}
