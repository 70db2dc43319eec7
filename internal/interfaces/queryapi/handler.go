package queryapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/valyala/fasthttp"
)

// TableReader is the read side the handlers serve.
type TableReader interface {
	ListTables(ctx context.Context) ([]usecase.TableSummary, error)
	TableRows(ctx context.Context, input usecase.TableQuery) ([]usecase.Row, error)
}

// Pinger reports store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	tables TableReader
	health Pinger
	logger *logging.Logger
}

func NewHandler(tables TableReader, health Pinger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tables: tables, health: health, logger: logger}
}

func (h *Handler) Healthz(ctx context.Context, rc *fasthttp.RequestCtx) {
	ctx, span := startSpan(ctx, "queryapi.Handler.Healthz")
	defer span.End()

	if h.health != nil {
		if err := h.health.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "error", err)
			writeError(ctx, rc, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err))
			return
		}
	}
	writeSuccess(rc, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListTables(ctx context.Context, rc *fasthttp.RequestCtx) {
	ctx, span := startSpan(ctx, "queryapi.Handler.ListTables")
	defer span.End()

	tables, err := h.tables.ListTables(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list tables failed", "error", err)
		writeError(ctx, rc, err)
		return
	}
	writeSuccess(rc, http.StatusOK, tables)
}

func (h *Handler) TableRows(ctx context.Context, rc *fasthttp.RequestCtx, table string) {
	ctx, span := startSpan(ctx, "queryapi.Handler.TableRows")
	defer span.End()

	args := rc.QueryArgs()
	matchID, err := parseOptionalInt(args.Peek("match_id"))
	if err != nil {
		writeError(ctx, rc, fmt.Errorf("%w: match_id must be an integer", usecase.ErrInvalidInput))
		return
	}
	limit, err := parseOptionalInt(args.Peek("limit"))
	if err != nil {
		writeError(ctx, rc, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
		return
	}

	rows, err := h.tables.TableRows(ctx, usecase.TableQuery{
		Table:   table,
		MatchID: matchID,
		Limit:   int(limit),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "read table rows failed", "table", table, "match_id", matchID, "error", err)
		writeError(ctx, rc, err)
		return
	}
	if rows == nil {
		rows = []usecase.Row{}
	}
	writeSuccess(rc, http.StatusOK, rows)
}

func parseOptionalInt(raw []byte) (int64, error) {
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}
