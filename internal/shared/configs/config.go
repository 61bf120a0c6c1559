package configs

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Log        LogConfig        `mapstructure:"log" validate:"required"`
	Broker     BrokerConfig     `mapstructure:"broker" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Tenant     TenantConfig     `mapstructure:"tenant" validate:"required"`
	DeadLetter DeadLetterConfig `mapstructure:"dead_letter" validate:"required"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port              int `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout int `mapstructure:"read_header_timeout" validate:"required,min=1"` // seconds
	ReadTimeout       int `mapstructure:"read_timeout" validate:"required,min=1"`        // seconds (headers+body)
	WriteTimeout      int `mapstructure:"write_timeout" validate:"required,min=1"`       // seconds (response)
	IdleTimeout       int `mapstructure:"idle_timeout" validate:"required,min=1"`        // seconds (keep-alive)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required"`
}

// BrokerConfig holds the in-process message log configuration.
type BrokerConfig struct {
	Topic      string `mapstructure:"topic" validate:"required"`
	Partitions int    `mapstructure:"partitions" validate:"required,min=1,max=256"`
	Buffer     int    `mapstructure:"buffer" validate:"required,min=1"`
}

// DatabaseConfig holds the time-series store configuration.
// An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL   string `mapstructure:"url"`
	Table string `mapstructure:"table"`
}

// TenantConfig holds tenant resolution configuration.
type TenantConfig struct {
	DefaultID string `mapstructure:"default_id" validate:"required,uuid"`
}

// DeadLetterConfig holds dead-letter sink configuration.
type DeadLetterConfig struct {
	RootDir string `mapstructure:"root_dir" validate:"required"`
}
