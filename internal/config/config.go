package config

import "time"

const (
	// DefaultTopic is used when no topic is given on the command line or in config.
	DefaultTopic = "public-chat"
	// DefaultAlias is used when no alias is given on the command line or in config.
	DefaultAlias = "unknow"
)

// Config holds client configuration values.
type Config struct {
	Topic           string        `mapstructure:"topic" yaml:"topic"`
	Alias           string        `mapstructure:"alias" yaml:"alias"`
	ListenAddrs     []string      `mapstructure:"listen_addrs" yaml:"listen_addrs"`
	ServiceName     string        `mapstructure:"service_name" yaml:"service_name"`
	Domain          string        `mapstructure:"domain" yaml:"domain"`
	RecordTTL       time.Duration `mapstructure:"record_ttl" yaml:"record_ttl"`
	BrowseInterval  time.Duration `mapstructure:"browse_interval" yaml:"browse_interval"`
	BrowseTimeout   time.Duration `mapstructure:"browse_timeout" yaml:"browse_timeout"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	HTTPAddr        string        `mapstructure:"http_addr" yaml:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Topic:           DefaultTopic,
		Alias:           DefaultAlias,
		ListenAddrs:     []string{"/ip4/0.0.0.0/tcp/0"},
		ServiceName:     "_wirechat._tcp",
		Domain:          "local.",
		RecordTTL:       2 * time.Minute,
		BrowseInterval:  20 * time.Second,
		BrowseTimeout:   5 * time.Second,
		LogLevel:        "info",
		HTTPAddr:        "",
		ShutdownTimeout: 5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Topic != "" {
		c.Topic = other.Topic
	}
	if other.Alias != "" {
		c.Alias = other.Alias
	}
	if len(other.ListenAddrs) > 0 {
		c.ListenAddrs = append([]string(nil), other.ListenAddrs...)
	}
	if other.ServiceName != "" {
		c.ServiceName = other.ServiceName
	}
	if other.Domain != "" {
		c.Domain = other.Domain
	}
	if other.RecordTTL != 0 {
		c.RecordTTL = other.RecordTTL
	}
	if other.BrowseInterval != 0 {
		c.BrowseInterval = other.BrowseInterval
	}
	if other.BrowseTimeout != 0 {
		c.BrowseTimeout = other.BrowseTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
