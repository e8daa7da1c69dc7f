package server

import "github.com/raysh454/a11ylens/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	Logger logging.Logger `mapstructure:"-" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{ListenAddr: "127.0.0.1:7420"}
}
