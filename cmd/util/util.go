package util

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the backend connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "endpoint"
	cmd.PersistentFlags().String(key, defaults.Endpoint, WrapString("The host:port of the key-value server"))

	key = "username"
	cmd.PersistentFlags().String(key, "", WrapString("Username for ACL authentication"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password for authentication (prefer the TROL_PASSWORD environment variable)"))

	key = "db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The logical database to select"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, defaults.TimeoutSecond, WrapString("The timeout in seconds of the client"))

	key = "retries"
	cmd.PersistentFlags().Int(key, defaults.RetryCount, WrapString("How many times to retry a command on network errors"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of pooled connections (0 uses the library default)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Collect command metrics and print them in the Prometheus text format on exit"))

	key = "log-commands"
	cmd.PersistentFlags().Bool(key, false, WrapString("Log every command sent to the server (requires --log-level=debug)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("trol")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		Username:      viper.GetString("username"),
		Password:      viper.GetString("password"),
		DB:            viper.GetInt("db"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		PoolSize:      viper.GetInt("pool-size"),
		EnableMetrics: viper.GetBool("metrics"),
		LogCommands:   viper.GetBool("log-commands"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// InitLogging sets the level of all loggers from the log-level setting
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// Connect binds the flags of cmd, opens a client and checks that the
// server answers
func Connect(cmd *cobra.Command) (*redis.Client, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	if err := InitLogging(); err != nil {
		return nil, err
	}

	config := GetClientConfig()
	client := backend.Open(*config)

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout(config))
	defer cancel()
	if err := backend.Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot reach %s: %w", config.Endpoint, err)
	}
	Logger.Infof("connected to %s (db %d)", config.Endpoint, config.DB)
	return client, nil
}

func pingTimeout(c *common.ClientConfig) time.Duration {
	if c.TimeoutSecond > 0 {
		return c.Timeout()
	}
	return 5 * time.Second
}

// DumpMetrics writes the collected command metrics in the Prometheus text
// format if metrics are enabled
func DumpMetrics(w io.Writer) {
	if !viper.GetBool("metrics") {
		return
	}
	_, _ = fmt.Fprintln(w)
	metrics.WritePrometheus(w, false)
}
