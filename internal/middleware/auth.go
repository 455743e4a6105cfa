package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"dispatch/internal/domain"
)

const actorKey = "dispatch.actor"

// ActorClaims are the claims of a bearer token. The subject is the user id.
type ActorClaims struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens issued by the auth service.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a TokenVerifier. An empty issuer is not checked.
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses raw and returns the actor it names.
func (v *TokenVerifier) Verify(raw string) (domain.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &ActorClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Actor{}, err
	}
	claims, ok := parsed.Claims.(*ActorClaims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, errors.New("invalid token claims")
	}
	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return domain.Actor{}, errors.New("token has no valid subject or role")
	}
	return domain.Actor{ID: claims.Subject, Role: role, CompanyID: claims.CompanyID}, nil
}

// Auth returns middleware that rejects requests without a valid bearer
// token and stores the actor in the context. The token may also come from
// the access_token query parameter, for EventSource clients.
func Auth(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortUnauthenticated(c, "missing bearer token")
			return
		}
		actor, err := v.Verify(raw)
		if err != nil {
			abortUnauthenticated(c, "invalid bearer token")
			return
		}
		actor.IP = c.ClientIP()
		actor.UserAgent = c.Request.UserAgent()
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Auth.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// SetActor stores actor in the context. Used by tests and trusted callers.
func SetActor(c *gin.Context, actor domain.Actor) {
	c.Set(actorKey, actor)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":    false,
		"error": msg,
		"code":  "unauthenticated",
	})
}
