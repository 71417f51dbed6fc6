package middleware

import (
	"net/http"
	"time"

	"github.com/royaliq/storefront/api/responses"
	"github.com/royaliq/storefront/pkg/auth/visitor"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

// Visitor resolves or mints the anonymous identity behind every request.
// A missing or invalid token is not an error: the shopper just gets a fresh
// identity and an empty bag.
func Visitor(manager *visitor.Manager, cfg config.VisitorConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			visitorID := ""
			if cookie, err := r.Cookie(cfg.Cookie); err == nil {
				if parsed, parseErr := manager.Parse(cookie.Value); parseErr == nil {
					visitorID = parsed
				}
			}

			if visitorID == "" {
				minted, token, err := manager.Issue(time.Now())
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting visitor identity"))
					return
				}
				visitorID = minted
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Cookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(manager.TTL() / time.Second),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = WithVisitorID(ctx, visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}

			if cookie, err := r.Cookie(cfg.Session); err == nil && cookie.Value != "" {
				ctx = WithSessionToken(ctx, cookie.Value)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
