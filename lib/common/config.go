package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig describes how a backend connection is opened.
type ClientConfig struct {
	// Endpoint is the host:port of the key-value server
	Endpoint string
	// Username and Password for ACL authentication (both optional)
	Username string
	Password string
	// DB selects the logical database on the server
	DB int
	// TimeoutSecond bounds dialing, reading and writing (0 = library default)
	TimeoutSecond int
	// RetryCount is handed to the connection pool (network level retries only)
	RetryCount int
	// PoolSize is the number of pooled connections (0 = library default)
	PoolSize int
	// EnableMetrics installs the metrics hook on the connection
	EnableMetrics bool
	// LogCommands installs the logging hook on the connection
	LogCommands bool
}

// DefaultClientConfig returns a configuration for a local server
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:      "localhost:6379",
		TimeoutSecond: 5,
		RetryCount:    0,
	}
}

// Timeout returns TimeoutSecond as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Database", strconv.Itoa(c.DB))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Pool Size", strconv.Itoa(c.PoolSize))

	addSection("Authentication")
	if c.Username != "" {
		addField("Username", c.Username)
	}
	if c.Password != "" {
		addField("Password", "********")
	} else {
		addField("Password", "(none)")
	}

	addSection("Instrumentation")
	addField("Metrics", strconv.FormatBool(c.EnableMetrics))
	addField("Command Logging", strconv.FormatBool(c.LogCommands))

	return sb.String()
}
