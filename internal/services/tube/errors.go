package tube

import "fmt"

// StatusError carries a non-2xx HTTP response so callers can apply retry and
// re-auth policy by status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("destination returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("destination returned status %d: %s", e.StatusCode, e.Body)
}

// IsAuthStatus reports whether the status requires a credential refresh.
func IsAuthStatus(code int) bool {
	return code == 401
}

// IsTransientStatus reports whether the status is safe to retry.
func IsTransientStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
