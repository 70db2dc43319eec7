package queryapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tablesPrefix = "/v1/tables/"

type ServerConfig struct {
	Addr         string
	Name         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewServer(cfg ServerConfig, handler fasthttp.RequestHandler) (*fasthttp.Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("query server addr cannot be empty")
	}
	return &fasthttp.Server{
		Handler:      handler,
		Name:         cfg.Name,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

// NewRouter dispatches the read-only routes. Every route is traced, logged and
// shielded from panics.
func NewRouter(handler *Handler, logger *logging.Logger) fasthttp.RequestHandler {
	if logger == nil {
		logger = logging.Default()
	}

	route := func(ctx context.Context, rc *fasthttp.RequestCtx) {
		if !rc.IsGet() && !rc.IsHead() {
			writeMethodNotAllowed(rc)
			return
		}

		path := string(rc.Path())
		switch {
		case path == "/healthz":
			handler.Healthz(ctx, rc)
		case path == "/v1/tables" || path == "/v1/tables/":
			handler.ListTables(ctx, rc)
		case strings.HasPrefix(path, tablesPrefix):
			table := strings.TrimPrefix(path, tablesPrefix)
			if table == "" || strings.Contains(table, "/") {
				writeError(ctx, rc, fmt.Errorf("%w: path %s", usecase.ErrNotFound, path))
				return
			}
			handler.TableRows(ctx, rc, table)
		default:
			writeError(ctx, rc, fmt.Errorf("%w: path %s", usecase.ErrNotFound, path))
		}
	}

	return requestTracing(requestLogging(logger, recoverPanic(logger, route)))
}

type routeHandler func(ctx context.Context, rc *fasthttp.RequestCtx)

func recoverPanic(logger *logging.Logger, next routeHandler) routeHandler {
	return func(ctx context.Context, rc *fasthttp.RequestCtx) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", string(rc.Path()))
				writeInternalError(rc)
			}
		}()
		next(ctx, rc)
	}
}

func requestLogging(logger *logging.Logger, next routeHandler) routeHandler {
	return func(ctx context.Context, rc *fasthttp.RequestCtx) {
		started := time.Now()
		next(ctx, rc)

		logger.InfoContext(ctx, "http request",
			"method", string(rc.Method()),
			"path", string(rc.Path()),
			"status", rc.Response.StatusCode(),
			"remote_addr", rc.RemoteAddr().String(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func requestTracing(next routeHandler) fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		path := string(rc.Path())
		if !shouldTraceRequest(path) {
			next(context.Background(), rc)
			return
		}

		ctx, span := apiTracer.Start(context.Background(), string(rc.Method())+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", string(rc.Method())),
				attribute.String("url.path", path),
			),
		)
		defer span.End()

		next(ctx, rc)

		status := rc.Response.StatusCode()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
