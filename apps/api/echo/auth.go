package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/session"
)

const tokenContextKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (c Claims) Identity() session.Identity {
	role, _ := session.ParseRole(c.Role)
	return session.Identity{ID: c.Subject, Name: c.Name, Email: c.Email, Role: role}
}

type jwtAuth struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		key:    []byte(conf.Server.SecretKey),
		issuer: conf.AppName,
		ttl:    conf.Server.JWTExpirationDelta,
	}
}

// middleware is the JWT auth middleware. Claims are stored in the context under tokenContextKey.
func (a *jwtAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    a.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	})
}

func (a *jwtAuth) claimsFor(id session.Identity) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   id.ID,
			ExpiresAt: now.Add(a.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  id.Name,
		Email: id.Email,
		Role:  roleValue(id.Role),
	}
}

// sign generates a signed JWT token string representing the Claims.
func (a *jwtAuth) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateToken issues a token for id, as the login endpoint would.
func GenerateToken(conf *core.Config, id session.Identity) (string, error) {
	a := newJWTAuth(conf)
	return a.sign(a.claimsFor(id))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func roleValue(r session.Role) string {
	b, err := r.MarshalText()
	if err != nil {
		return ""
	}
	return string(b)
}
