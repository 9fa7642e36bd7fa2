package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apdulab/apdulab/pkg/logstore"
	"github.com/apdulab/apdulab/pkg/transport"
)

// Config is the top-level console configuration.
type Config struct {
	Proxy ProxyConfig `yaml:"proxy"`
	TCP   TCPConfig   `yaml:"tcp"`
	Log   LogConfig   `yaml:"log"`
}

// ProxyConfig holds the WebSocket bridge endpoints for the proxied transport
// kinds.
type ProxyConfig struct {
	WebUSB string `yaml:"webusb"`
	WebHID string `yaml:"webhid"`
	WebBLE string `yaml:"webble"`
}

// TCPConfig holds the emulator transport settings.
type TCPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds log and aggregator settings.
type LogConfig struct {
	// Buffer bounds the aggregator merge channel and the diagnostics feeds.
	Buffer int `yaml:"buffer"`
	// Hidden lists entry kinds filtered out of the initial view.
	Hidden []string `yaml:"hidden"`
}

// DefaultConfig returns the configuration used when no file is present: a
// local bridge for the proxied kinds and a local emulator for tcp.
func DefaultConfig() Config {
	return Config{
		Proxy: ProxyConfig{
			WebUSB: "ws://localhost:8435/usb",
			WebHID: "ws://localhost:8435/hid",
			WebBLE: "ws://localhost:8435/ble",
		},
		TCP: TCPConfig{Addr: "127.0.0.1:9999"},
		Log: LogConfig{Buffer: 256},
	}
}

// LoadConfig reads a YAML file and returns a Config. Environment variables
// referenced as ${VAR} or $VAR in the YAML are expanded before parsing, so
// endpoints can be kept in the environment (e.g. loaded from a .env file).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	for _, ep := range []struct {
		kind transport.Kind
		url  string
	}{
		{transport.KindWebUSB, c.Proxy.WebUSB},
		{transport.KindWebHID, c.Proxy.WebHID},
		{transport.KindWebBLE, c.Proxy.WebBLE},
	} {
		if ep.url == "" {
			continue
		}
		if !strings.HasPrefix(ep.url, "ws://") && !strings.HasPrefix(ep.url, "wss://") {
			return fmt.Errorf("engine: config: %s proxy endpoint %q is not a ws:// or wss:// url", ep.kind, ep.url)
		}
	}

	if c.Log.Buffer < 0 {
		return fmt.Errorf("engine: config: log buffer must not be negative")
	}

	known := make(map[string]struct{}, len(logstore.Kinds))
	for _, k := range logstore.Kinds {
		known[string(k)] = struct{}{}
	}
	for _, h := range c.Log.Hidden {
		if _, ok := known[h]; !ok {
			return fmt.Errorf("engine: config: unknown log kind %q in hidden list", h)
		}
	}

	return nil
}

// InitialFilter builds the log filter the view starts with.
func (c Config) InitialFilter() logstore.Filter {
	f := logstore.NewFilter()
	for _, h := range c.Log.Hidden {
		f[logstore.Kind(h)] = false
	}
	return f
}
