package sim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"microgrid-console/internal/domain"
)

const tokenExpiry = 30 * time.Minute

// ErrBadCredentials is returned for unknown users and wrong passwords
// alike so the response never reveals which part failed.
var ErrBadCredentials = errors.New("incorrect username or password")

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type account struct {
	user domain.User
	hash []byte
}

// Authenticator issues and validates bearer tokens for the default
// console accounts.
type Authenticator struct {
	secret []byte

	mu    sync.RWMutex
	users map[string]*account
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	a := &Authenticator{
		secret: []byte(secret),
		users:  make(map[string]*account),
	}
	defaults := []struct {
		id       int64
		username string
		email    string
		role     domain.Role
		password string
	}{
		{1, "admin", "admin@microgrid.com", domain.RoleAdmin, "admin123"},
		{2, "operator", "operator@microgrid.com", domain.RoleOperator, "operator123"},
	}
	for _, d := range defaults {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash default password: %w", err)
		}
		a.users[d.username] = &account{
			user: domain.User{
				ID:        d.id,
				Username:  d.username,
				Email:     d.email,
				Role:      d.role,
				IsActive:  true,
				CreatedAt: domain.Now(),
			},
			hash: hash,
		}
	}
	return a, nil
}

// Login verifies the credentials and returns a signed token plus the
// matching user record.
func (a *Authenticator) Login(username, password string) (string, domain.User, error) {
	a.mu.RLock()
	acct, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return "", domain.User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return "", domain.User{}, ErrBadCredentials
	}

	claims := Claims{
		Username: acct.user.Username,
		Role:     string(acct.user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.user.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("sign token: %w", err)
	}
	return token, acct.user, nil
}

// ValidateToken parses the token and returns its claims when the
// signature and expiry check out.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
