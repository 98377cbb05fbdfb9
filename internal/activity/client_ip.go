package activity

import (
	"context"
	"net/http"

	"github.com/2beens/clientportal/pkg"

	log "github.com/sirupsen/logrus"
)

type clientIPCtxKey struct{}

// ClientIP stores the caller ip in the request context, so auth events
// emitted while serving the request can be attributed to it.
func ClientIP() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := pkg.ReadUserIP(r)
			if err != nil {
				log.Tracef("read user ip: %s", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPCtxKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPCtxKey{}).(string)
	return ip
}
