package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	svcerrors "github.com/R3E-Network/weatherinsight/internal/errors"
	"github.com/R3E-Network/weatherinsight/internal/httputil"
	"github.com/R3E-Network/weatherinsight/internal/logging"
)

// Recovery converts handler panics into a 500 response.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("%v", rec)
				logger.WithContext(r.Context()).
					WithError(err).
					WithField("stack", string(debug.Stack())).
					Error("panic in handler")
				httputil.WriteServiceError(w, svcerrors.Internal(err))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
