package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/zawlinn/boostline-backend/api/responses"
	"github.com/zawlinn/boostline-backend/pkg/config"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// OpsToken gates the operator endpoints behind a static bearer token.
// An empty configured token closes the surface entirely rather than
// leaving it open.
func OpsToken(cfg config.OpsConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator access disabled"))
				return
			}

			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.Token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid operator token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
