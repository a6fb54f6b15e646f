package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header. The scheme keyword is matched case-sensitively. A missing header,
// another scheme or an empty token yields ("", false), which callers treat as
// an anonymous request rather than a fault.
func ExtractBearer(h http.Header) (string, bool) {
	value := h.Get("Authorization")
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", false
	}
	token := value[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
