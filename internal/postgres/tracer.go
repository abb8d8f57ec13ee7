package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

var queryObserver atomic.Pointer[queryObserverHolder]

type ctxKey string

const (
	ctxKeyQuery      ctxKey = "pgx.query"
	ctxKeyHTTPMethod ctxKey = "http.method"
)

// queryInfo is stashed by TraceQueryStart for TraceQueryEnd.
type queryInfo struct {
	sql     string
	nargs   int
	start   time.Time
	caller  string
	handler string
}

type queryObserverHolder struct{ QueryObserver }

// QueryObserver receives per-query metrics (wired by main for Prometheus).
type QueryObserver interface {
	ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, method, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration) {
	f(ctx, method, route, outcome, dur)
}

// SetQueryObserver sets the global query observer (typically a Prometheus histogram).
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&queryObserverHolder{QueryObserver: o})
}

// WithHTTPMethod stores the HTTP method in the context for query metrics labelling.
func WithHTTPMethod(ctx context.Context, method string) context.Context {
	if method == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyHTTPMethod, method)
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

func httpMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyHTTPMethod).(string); ok {
		return v
	}
	return ""
}

func routePatternFromContext(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// loggingTracer wraps another pgx.QueryTracer (e.g. otelpgx), feeds the
// query observer and logs failed queries and queries slower than slow.
// Arguments are never logged since they carry alert text.
type loggingTracer struct {
	inner pgx.QueryTracer
	slow  time.Duration
}

// wrapQueryTracer wraps an inner tracer with structured logging.
// slow == 0 logs every query.
func wrapQueryTracer(inner pgx.QueryTracer, slow time.Duration) pgx.QueryTracer {
	return loggingTracer{inner: inner, slow: slow}
}

func (t loggingTracer) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	qi := &queryInfo{
		sql:   data.SQL,
		nargs: len(data.Args),
		start: time.Now(),
	}
	qi.caller, qi.handler = findDBCallerAndHandler()

	// Let inner tracer (otelpgx) create its span first.
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}
	ctx = context.WithValue(ctx, ctxKeyQuery, qi)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, 2)
		if qi.caller != "" {
			attrs = append(attrs, attribute.String("db.caller", qi.caller))
		}
		if qi.handler != "" {
			attrs = append(attrs, attribute.String("db.handler", qi.handler))
		}
		span.SetAttributes(attrs...)
	}

	return ctx
}

func (t loggingTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	// Always call inner tracer first so spans are finished correctly.
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	qi, _ := ctx.Value(ctxKeyQuery).(*queryInfo)
	if qi == nil {
		qi = &queryInfo{}
	}

	var dur time.Duration
	if !qi.start.IsZero() {
		dur = time.Since(qi.start)
	}

	outcome := "ok"
	if data.Err != nil {
		outcome = "error"
	}

	if obs := getQueryObserver(); obs != nil && dur > 0 {
		method := httpMethodFromContext(ctx)
		if method == "" {
			method = "NONE"
		}
		route := routePatternFromContext(ctx)
		if route == "" {
			route = "none"
		}
		obs.ObserveQuery(ctx, method, route, outcome, dur)
	}

	if data.Err == nil && dur < t.slow {
		return
	}

	fields := []any{
		"db.statement", qi.sql,
		"db.args", qi.nargs,
		"db.duration", dur.Seconds(),
	}

	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		if parts := strings.Fields(tag); len(parts) > 0 {
			fields = append(fields, "db.operation.name", strings.ToUpper(parts[0]))
		}
		fields = append(fields, "db.rows", data.CommandTag.RowsAffected())
	}
	if qi.caller != "" {
		fields = append(fields, "db.caller", qi.caller)
	}
	if qi.handler != "" {
		fields = append(fields, "db.handler", qi.handler)
	}

	L := log.FromContext(ctx)

	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields,
				"db.error_code", pgErr.Code,
				"db.error_constraint", pgErr.ConstraintName,
			)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}

	if t.slow > 0 {
		L.Warn(ctx, "slow db query", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

// findDBCallerAndHandler walks the stack to find:
//   - caller: the store function actually issuing the query
//   - handler: the next meaningful frame above that (e.g. service/handler)
func findDBCallerAndHandler() (caller, handler string) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		fr, more := frames.Next()
		fn := fr.Function

		// Skip noise: runtime, pgx internals, otelpgx, this package.
		skip := strings.HasPrefix(fn, "runtime.") ||
			strings.Contains(fn, "github.com/jackc/pgx/v5") ||
			strings.Contains(fn, "github.com/exaring/otelpgx") ||
			strings.Contains(fn, "github.com/linnemanlabs/opsgenix/internal/postgres.")

		if !skip && fn != "" {
			if caller == "" {
				caller = shortenFuncName(fn)
			} else {
				return caller, shortenFuncName(fn)
			}
		}
		if !more {
			return caller, handler
		}
	}
}

func shortenFuncName(fn string) string {
	// Trim package path.
	if i := strings.LastIndex(fn, "/"); i >= 0 && i+1 < len(fn) {
		fn = fn[i+1:]
	}
	// Trim package name, keep receiver + method.
	if dot := strings.Index(fn, "."); dot >= 0 && dot+1 < len(fn) {
		fn = fn[dot+1:]
	}
	return fn
}
