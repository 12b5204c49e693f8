package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Logger
// --------------------------------------------------------------------------

// LoggerNames lists every logger used by the packages of this module
var LoggerNames = []string{"backend", "lockmgr", "cli"}

var (
	outputMu sync.Mutex
	output   io.Writer = os.Stderr
)

// SetLogOutput redirects every logger created by CreateLogger to w.
func SetLogOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// trolLogger writes "time LEVEL | name | message" lines. It satisfies
// dragonboat's logger.ILogger so it can be installed as logger factory.
type trolLogger struct {
	name  string
	mu    sync.RWMutex
	level logger.LogLevel
}

// CreateLogger is the factory installed by InitLoggers. New loggers only
// report warnings and errors.
func CreateLogger(name string) logger.ILogger {
	return &trolLogger{name: name, level: logger.WARNING}
}

func (l *trolLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *trolLogger) enabled(level logger.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level >= level
}

func (l *trolLogger) write(level logger.LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	line := fmt.Sprintf("%s %-5s | %-8s | %s\n",
		time.Now().Format("2006/01/02 15:04:05"), levelTags[level], l.name, fmt.Sprintf(format, args...))

	outputMu.Lock()
	_, _ = io.WriteString(output, line)
	outputMu.Unlock()
}

func (l *trolLogger) Debugf(format string, args ...interface{}) { l.write(logger.DEBUG, format, args) }

func (l *trolLogger) Infof(format string, args ...interface{}) { l.write(logger.INFO, format, args) }

func (l *trolLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, format, args)
}

func (l *trolLogger) Errorf(format string, args ...interface{}) { l.write(logger.ERROR, format, args) }

// Panicf logs at CRITICAL and panics regardless of the level.
func (l *trolLogger) Panicf(format string, args ...interface{}) {
	l.write(logger.CRITICAL, format, args)
	panic(fmt.Sprintf(format, args...))
}

// ParseLogLevel maps debug, info, warn(ing) and error to a dragonboat level.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn", "":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
}

// InitLoggers installs CreateLogger as factory and sets the level of every
// logger in LoggerNames.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	logger.SetLoggerFactory(CreateLogger)
	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
