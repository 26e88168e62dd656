package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

const principalKey = "principal"

// Authenticator turns a bearer token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*security.Principal, error)
}

// Auth rejects requests without a valid bearer token and stores the
// principal on the context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errors.New(errors.ErrCodeUnauthorized, "authorization token not provided"))
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Error(c, errors.New(errors.ErrCodeUnauthorized, "invalid authorization header format"))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if !errors.Is(err, errors.ErrCodeInternalError) {
				err = errors.New(errors.ErrCodeUnauthorized, "invalid or expired token")
			}
			response.Error(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c *gin.Context) (*security.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*security.Principal)
	return p, ok && p != nil
}

// MustPrincipal is PrincipalFrom for handlers mounted behind Auth.
func MustPrincipal(c *gin.Context) *security.Principal {
	p, ok := PrincipalFrom(c)
	if !ok {
		panic("middleware: handler mounted without Auth")
	}
	return p
}
