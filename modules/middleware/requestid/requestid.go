// Package requestid tags each request with a UUIDv7, echoed in X-Request-Id
// and attached to problem documents as traceId.
package requestid

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofrs/uuid/v5"
)

const Header = "X-Request-Id"

type ctxKey struct{}

func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware reuses a well-formed incoming X-Request-Id, otherwise mints one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if _, err := uuid.FromString(id); err != nil {
			v7, err := uuid.NewV7()
			if err != nil {
				slog.ErrorContext(r.Context(), "request id generation failed", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			id = v7.String()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(With(r.Context(), id)))
	})
}
