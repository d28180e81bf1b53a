package app

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"meetings-service/internal/store"
)

const requesterKey = "requester"

// Authenticate resolves the Authorization header to a user. Requests without
// the header continue anonymously; a header that does not check out is 401.
func (a *App) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		scheme, _, _ := strings.Cut(auth, " ")
		var (
			user *store.User
			err  error
		)
		switch {
		case strings.EqualFold(scheme, "Basic"):
			user, err = a.basicUser(c)
		case strings.EqualFold(scheme, "Bearer"):
			user, err = a.bearerUser(c, strings.TrimSpace(auth[len(scheme):]))
		default:
			err = &UnauthorizedError{Message: "invalid authorization format"}
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(requesterKey, user)
		c.Next()
	}
}

func (a *App) basicUser(c *gin.Context) (*store.User, error) {
	name, password, ok := c.Request.BasicAuth()
	if !ok {
		return nil, &UnauthorizedError{Message: "invalid authorization format"}
	}
	user, err := a.Store.UserByName(c.Request.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &UnauthorizedError{Message: "invalid credentials"}
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, &UnauthorizedError{Message: "invalid credentials"}
	}
	return user, nil
}

func (a *App) bearerUser(c *gin.Context, tokenStr string) (*store.User, error) {
	if a.JWTSecret == "" {
		return nil, &UnauthorizedError{Message: "bearer tokens are disabled"}
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil || claims.Subject == "" {
		return nil, &UnauthorizedError{Message: "invalid token"}
	}

	user, err := a.Store.UserByName(c.Request.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &UnauthorizedError{Message: "invalid token"}
	}
	return user, err
}

// requester is the authenticated user, nil for anonymous requests.
func requester(c *gin.Context) *store.User {
	if v, ok := c.Get(requesterKey); ok {
		return v.(*store.User)
	}
	return nil
}

// actingAs rejects authenticated requests made on behalf of someone else.
func actingAs(c *gin.Context, username string) error {
	if u := requester(c); u != nil && u.Name != username {
		return &ForbiddenError{Message: "Not allowed to act on behalf of another user"}
	}
	return nil
}

// POST /tokens
func (a *App) IssueTokenHandler(c *gin.Context) {
	if a.JWTSecret == "" {
		respondError(c, &NotFoundError{Message: "The requested URL was not found on the server."})
		return
	}
	user := requester(c)
	if user == nil {
		respondError(c, &UnauthorizedError{Message: "missing authorization"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.JWTExpiration)),
	})
	signed, err := token.SignedString([]byte(a.JWTSecret))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"token": signed})
}
