package backend

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

// --------------------------------------------------------------------------
// Metrics hook
// --------------------------------------------------------------------------

const (
	metricCommands  = "trol_backend_commands_total"
	metricPipelines = "trol_backend_pipelines_total"
	metricErrors    = "trol_backend_errors_total"
	metricDuration  = "trol_backend_duration_seconds"
)

type metricsHook struct {
	set *metrics.Set
}

// NewMetricsHook returns a hook that counts commands, pipelines and errors
// and records round trip durations in the default metrics set.
func NewMetricsHook() redis.Hook {
	return &metricsHook{}
}

// NewMetricsHookWithSet is NewMetricsHook writing into s.
func NewMetricsHookWithSet(s *metrics.Set) redis.Hook {
	return &metricsHook{set: s}
}

func (h *metricsHook) counter(name string) *metrics.Counter {
	if h.set != nil {
		return h.set.GetOrCreateCounter(name)
	}
	return metrics.GetOrCreateCounter(name)
}

func (h *metricsHook) histogram(name string) *metrics.Histogram {
	if h.set != nil {
		return h.set.GetOrCreateHistogram(name)
	}
	return metrics.GetOrCreateHistogram(name)
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.counter(`trol_backend_dial_errors_total`).Inc()
		}
		return conn, err
	}
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.histogram(fmt.Sprintf(`%s{kind="command"}`, metricDuration)).UpdateDuration(start)
		h.counter(fmt.Sprintf(`%s{cmd=%q}`, metricCommands, strings.ToLower(cmd.Name()))).Inc()
		if err != nil && !IsNil(err) {
			h.counter(metricErrors).Inc()
		}
		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.histogram(fmt.Sprintf(`%s{kind="pipeline"}`, metricDuration)).UpdateDuration(start)
		h.counter(metricPipelines).Inc()
		for _, cmd := range cmds {
			h.counter(fmt.Sprintf(`%s{cmd=%q}`, metricCommands, strings.ToLower(cmd.Name()))).Inc()
		}
		if err != nil && !IsNil(err) {
			h.counter(metricErrors).Inc()
		}
		return err
	}
}

// --------------------------------------------------------------------------
// Logging hook
// --------------------------------------------------------------------------

type logHook struct {
	log logger.ILogger
}

// NewLogHook returns a hook that writes every command to log at DEBUG
// level and every failed command at WARNING level.
func NewLogHook(log logger.ILogger) redis.Hook {
	return &logHook{log: log}
}

func (h *logHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.log.Warningf("dial %s %s failed: %v", network, addr, err)
		}
		return conn, err
	}
}

func (h *logHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !IsNil(err) {
			h.log.Warningf("%v: %v", cmd.Args(), err)
		} else {
			h.log.Debugf("%v", cmd.Args())
		}
		return err
	}
}

func (h *logHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		h.log.Debugf("pipeline of %d commands", len(cmds))
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !IsNil(cerr) {
				h.log.Warningf("%v: %v", cmd.Args(), cerr)
			}
		}
		return err
	}
}
