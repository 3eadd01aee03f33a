package api

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type ctxKey string

const (
	requestIDKey    = "request-id"
	traceContextKey = "traceContext"

	ctxKeyRequestID ctxKey = "request-id"
)

func RecoveryMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if rvr := recover(); rvr != nil {
				stack := debug.Stack()
				panicRecoveries.Inc()

				log.Error().
					Interface("panic", rvr).
					Str("method", string(ctx.Method())).
					Str("url", ctx.URI().String()).
					Str("remote_addr", ctx.RemoteAddr().String()).
					Str("stack_trace", string(stack)).
					Msg("Recovered from panic")

				pc, file, line, ok := runtime.Caller(3)
				if ok {
					log.Logger.Error().
						Str("file", file).
						Int("line", line).
						Str("function", runtime.FuncForPC(pc).Name()).
						Msg("Panic occurred here")
				}

				writeError(ctx, fasthttp.StatusInternalServerError, errInternal)
			}
		}()

		next(ctx)
	}
}

// LoggingMiddleware логирует каждый запрос с включением request_id.
// Входящий X-Request-Id используется, если это валидный UUID.
func LoggingMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		requestID := string(ctx.Request.Header.Peek("X-Request-Id"))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		ctx.SetUserValue(requestIDKey, requestID)
		ctx.Response.Header.Set("X-Request-Id", requestID)

		traceCtx := context.WithValue(context.Background(), ctxKeyRequestID, requestID)
		ctx.SetUserValue(traceContextKey, traceCtx)

		begin := time.Now()
		next(ctx)

		log.Logger.Info().
			Str("request_id", requestID).
			Bytes("method", ctx.Method()).
			Str("url", ctx.URI().String()).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(begin)).
			Msg("Completed request")
	}
}

// CORS middleware для обработки заголовков CORS
func CORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// requestContext возвращает контекст для вызовов репозиториев с request-id.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if c, ok := ctx.UserValue(traceContextKey).(context.Context); ok {
		return c
	}
	return context.Background()
}
