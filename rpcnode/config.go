package rpcnode

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultPort is the RPC port used when the node config does not set one.
	DefaultPort = 19932

	// DefaultHost is fixed. The node config file never moves the RPC
	// endpoint off the local machine.
	DefaultHost = "127.0.0.1"

	DefaultMaxRetries       = 3
	DefaultReconnectTimeout = 25  // seconds, base for backoff
	DefaultRequestTimeout   = 120 // seconds, per HTTP request
	DefaultMaxInFlight      = 1000
)

// Config holds the connection settings for a node RPC endpoint.
type Config struct {
	Host     string `default:"127.0.0.1" envconfig:"RPC_HOST" json:"host"`
	Port     int    `default:"19932" envconfig:"RPC_PORT" json:"port"`
	Username string `envconfig:"RPC_USERNAME" json:"username"`
	Password string `envconfig:"RPC_PASSWORD" json:"password" masked:"true"`

	// FallbackURL, when set, is adopted as the service URL after the circuit
	// breaker opens.
	FallbackURL string `envconfig:"RPC_FALLBACK_URL" json:"fallback_url"`

	// MaxRetries is the number of attempts per call.
	MaxRetries int `default:"3" envconfig:"RPC_MAX_RETRIES" json:"max_retries"`

	// ReconnectTimeout is the backoff base in seconds. Attempt i sleeps
	// min(base*2^i + jitter, 120s).
	ReconnectTimeout int `default:"25" envconfig:"RPC_RECONNECT_TIMEOUT" json:"reconnect_timeout"`

	// RequestTimeout is the HTTP request timeout in seconds.
	RequestTimeout int `default:"120" envconfig:"RPC_REQUEST_TIMEOUT" json:"request_timeout"`

	// UseHealthCheck enables a GET probe of the health endpoint before each
	// call.
	UseHealthCheck bool `default:"false" envconfig:"RPC_USE_HEALTH_CHECK" json:"use_health_check"`

	// MaxInFlight bounds the concurrent RPCs issued through one node.
	MaxInFlight int `default:"1000" envconfig:"RPC_MAX_IN_FLIGHT" json:"max_in_flight"`
}

// URL returns the service URL for the configured endpoint.
func (c Config) URL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// String returns a custom string representation.
//
// This is important so we don't log sensitive config values.
func (c Config) String() string {
	return fmt.Sprintf("{Host:%v Port:%d Username:%v Password:%v MaxRetries:%d}",
		c.Host, c.Port, c.Username, "****", c.MaxRetries)
}

// LoadConfig reads connection settings from a node config file of
// "key=value" lines. Keys other than rpcuser, rpcpassword and rpcport are
// returned in the flags map untouched. The host is always the local machine.
func LoadConfig(path string) (*Config, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open node config")
	}
	defer f.Close()

	result := &Config{
		Host:             DefaultHost,
		Port:             DefaultPort,
		MaxRetries:       DefaultMaxRetries,
		ReconnectTimeout: DefaultReconnectTimeout,
		RequestTimeout:   DefaultRequestTimeout,
		MaxInFlight:      DefaultMaxInFlight,
	}
	flags := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "rpcuser":
			result.Username = value
		case "rpcpassword":
			result.Password = value
		case "rpcport":
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "rpcport %q", value)
			}
			result.Port = port
		default:
			flags[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "read node config")
	}

	return result, flags, nil
}
