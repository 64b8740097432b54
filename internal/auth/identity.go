package auth

import (
	"os"
	"strings"

	"newsdesk/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityContextKey = "cms_identity"

// Identity is the trusted actor context decoded from the request token.
type Identity struct {
	UserID string
	Role   Role
	// Token is the raw bearer token, forwarded to the notification sink.
	Token string
}

// Verifier parses and verifies identity tokens issued by the external
// identity provider.
type Verifier struct {
	secret []byte
}

// NewVerifier reads the shared signing secret from JWT_SECRET.
func NewVerifier() *Verifier {
	return &Verifier{secret: []byte(os.Getenv("JWT_SECRET"))}
}

// Parse verifies tokenString and extracts the identity. The role claim may
// be a single "role" string or the first entry of a "roles" list.
func (v *Verifier) Parse(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorizedf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorizedf("invalid token")
	}

	sub, _ := claims["sub"].(string)

	var rawRole string
	if role, ok := claims["role"].(string); ok {
		rawRole = role
	} else if roles, ok := claims["roles"].([]interface{}); ok && len(roles) > 0 {
		rawRole, _ = roles[0].(string)
	}
	if rawRole == "" {
		return nil, apperr.Unauthorizedf("role missing in token")
	}

	return &Identity{
		UserID: sub,
		Role:   ParseRole(rawRole),
		Token:  tokenString,
	}, nil
}

// Middleware extracts the bearer token, verifies it and stores the Identity
// on the request context. Requests without a valid token get 401.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			err := apperr.Unauthorizedf("bearer token required")
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		identity, err := v.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the request identity set by Middleware.
func IdentityFrom(c *gin.Context) *Identity {
	if v, ok := c.Get(identityContextKey); ok {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}
