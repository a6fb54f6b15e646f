package handlers

import (
	"net/http"
	"strconv"

	"github.com/upb/tradedesk/middleware"
	"github.com/upb/tradedesk/utils"
	"go.uber.org/zap"
)

// requireSubject returns the verified subject, writing a 401 when the route
// was mounted without RequireAuth
func requireSubject(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	subject := middleware.GetSubjectFromContext(r.Context())
	if subject == "" {
		logger.Error("handler reached without verified claims",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		writeOrLog(utils.WriteUnauthorized(w, "Authentication required"), logger)
		return "", false
	}
	return subject, true
}

// queryInt parses a non-negative integer query parameter, returning def when absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{name: name + " must be a non-negative integer"},
		}
	}
	return n, nil
}
