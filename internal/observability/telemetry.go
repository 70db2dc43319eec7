package observability

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// Telemetry owns the process-wide trace exporter and profiler of one binary.
type Telemetry struct {
	component string
	tracing   bool
	profiler  *pyroscope.Profiler
	logger    *logging.Logger
}

// Start enables Uptrace export and Pyroscope profiling as configured.
// component names the binary ("ingest", "query") in both backends.
func Start(cfg config.Config, component string, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{component: component, logger: logger}

	t.startTracing(cfg)
	if err := t.startProfiling(cfg); err != nil {
		_ = t.Shutdown(context.Background())
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) Tracing() bool   { return t != nil && t.tracing }
func (t *Telemetry) Profiling() bool { return t != nil && t.profiler != nil }

// Shutdown flushes spans and stops the profiler. Both are attempted even when
// one fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var err error
	if t.profiler != nil {
		if stopErr := t.profiler.Stop(); stopErr != nil {
			err = crerr.CombineErrors(err, fmt.Errorf("stop pyroscope: %w", stopErr))
		}
		t.profiler = nil
	}
	if t.tracing {
		if flushErr := uptrace.Shutdown(ctx); flushErr != nil {
			err = crerr.CombineErrors(err, fmt.Errorf("shutdown uptrace: %w", flushErr))
		}
		t.tracing = false
	}
	return err
}

func (t *Telemetry) startTracing(cfg config.Config) {
	if !cfg.UptraceEnabled {
		t.logger.Debug("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return
	}
	if strings.TrimSpace(cfg.UptraceDSN) == "" {
		t.logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(attribute.String("app.component", t.component)),
	)
	t.tracing = true

	t.logger.Info("uptrace enabled",
		"component", t.component,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
	)
}

// startProfiling collects CPU, allocation and goroutine profiles only.
func (t *Telemetry) startProfiling(cfg config.Config) error {
	if !cfg.PyroscopeEnabled {
		t.logger.Debug("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return nil
	}

	appName := cfg.PyroscopeAppName
	if appName == "" {
		appName = cfg.ServiceName + "." + t.component
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   appName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":       cfg.AppEnv,
			"component": t.component,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return fmt.Errorf("start pyroscope: %w", err)
	}
	t.profiler = profiler

	t.logger.Info("pyroscope enabled", "component", t.component, "application", appName)
	return nil
}
