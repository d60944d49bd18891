package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// FeedConfig contains Keihan feed endpoint configuration
type FeedConfig struct {
	BaseURL        string `yaml:"baseURL" validate:"omitempty,url"`
	TimeoutMS      int    `yaml:"timeoutMS" validate:"gte=0"`
	PollIntervalMS int    `yaml:"pollIntervalMS" validate:"gte=0"`
}

// StoreConfig contains snapshot archive configuration; an empty path
// disables the archive.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server ServerConfig `yaml:"server" validate:"required"`
	Feed   FeedConfig   `yaml:"feed"`
	Store  StoreConfig  `yaml:"store"`
}
