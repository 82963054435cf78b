package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	// BindAddress is the address the debug HTTP server listens on.
	BindAddress string
	// Transport selects how ConnectEvent places a call: "tcp" dials a
	// real TCP socket, "serial" bridges to a physical modem over a
	// serial port.
	Transport string
	// SerialPort is the path to the bridged modem's serial port, used
	// when Transport is "serial".
	SerialPort string
	// BaudRate is the baud rate for the serial bridge.
	BaudRate int
	// DialAddress is the fixed TCP address every dialed number resolves
	// to, used when Transport is "tcp".
	DialAddress string
	// LogLevel sets the logging level (debug, info, warn, error).
	LogLevel string
}

// ConfigOption is a function that modifies a Config.
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// WithDefaults applies default configuration values.
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.Transport = "tcp"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.DialAddress = "10.0.1.1:2468"
		c.LogLevel = "info"
		return nil
	}
}

// WithEnv loads configuration from environment variables.
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}
		if transport := os.Getenv("MODEM_TRANSPORT"); transport != "" {
			c.Transport = transport
		}
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}
		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}
		if dial := os.Getenv("DIAL_ADDRESS"); dial != "" {
			c.DialAddress = dial
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags.
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "transport":
				c.Transport = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "dial-address":
				c.DialAddress = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			}
		})
		return nil
	}
}
