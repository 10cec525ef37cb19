package security

import "errors"

// Authentication failure kinds. Callers outside the token services must treat
// all of them as one "unauthorized" outcome; the distinction is for logs.
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrWrongAudience        = errors.New("wrong token audience")
	ErrRevoked              = errors.New("token revoked")
	ErrPrincipalUnavailable = errors.New("principal unavailable")
)

var authenticationErrors = []error{
	ErrInvalidToken,
	ErrWrongAudience,
	ErrRevoked,
	ErrPrincipalUnavailable,
}

// IsAuthenticationError reports whether err carries one of the failure kinds.
func IsAuthenticationError(err error) bool {
	return Kind(err) != ""
}

// Kind returns a short label for the failure kind carried by err, or "" when
// err is not an authentication failure.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range authenticationErrors {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ""
}
