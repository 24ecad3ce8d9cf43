package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/Promise30/promise-auth/internal/audit"
	"github.com/Promise30/promise-auth/internal/logger"
	"github.com/Promise30/promise-auth/internal/signin"

	"github.com/gin-gonic/gin"
)

const genericErrorMessage = "An unexpected error occurred. Please try again later."

// ErrorLogging is the outermost middleware. It catches both panics and
// errors attached via c.Error, logs them, records an audit entry, and
// converts them into a user-facing response:
//
//   - auth-related failures redirect to the login page, since retrying the
//     provider flow is the only useful recovery
//   - anything else becomes a 500 with a generic message
//
// If the handler already started writing the response, no recovery page can
// be produced; the failure is logged and re-raised so the connection is torn
// down instead of serving a half-written page.
func ErrorLogging(log *slog.Logger, audits audit.Store, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			var err error
			if v := recover(); v != nil {
				var ok bool
				if err, ok = v.(error); !ok {
					err = fmt.Errorf("panic: %v", v)
				}
			} else if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			if err == nil {
				return
			}

			stack := string(debug.Stack())

			// Logging comes first: the record must exist even if every
			// step after this one fails.
			log.Error("unhandled request error",
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				logger.Error(err),
			)

			// The request context may already be cancelled (the client is
			// gone); the audit write still has to land.
			saveAuditEntry(context.WithoutCancel(c.Request.Context()), log, audits, err, stack)

			if c.Writer.Written() {
				log.Warn("response already started, cannot render error page")
				panic(err)
			}

			if isAuthRelated(err) {
				c.Redirect(http.StatusFound, loginPath)
				c.Abort()
				return
			}

			c.String(http.StatusInternalServerError, genericErrorMessage)
			c.Abort()
		}()

		c.Next()
	}
}

// saveAuditEntry is best effort: a broken audit store must not turn a
// handled failure into an unhandled one.
func saveAuditEntry(ctx context.Context, log *slog.Logger, audits audit.Store, err error, stack string) {
	if audits == nil {
		return
	}
	if saveErr := audits.Save(ctx, audit.NewEntry(err, stack)); saveErr != nil {
		log.Warn("audit entry not saved", logger.Error(saveErr))
	}
}

// isAuthRelated classifies failures of the external login flow itself, as
// opposed to bugs. It matches the dedicated error type, errors surfaced by
// remote-authentication libraries, and the provider's own denial code.
func isAuthRelated(err error) bool {
	var authErr *signin.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	if strings.Contains(strings.ToLower(fmt.Sprintf("%T", err)), "remoteauthentication") {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "access_denied")
}
