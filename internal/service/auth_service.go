package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// defaultSigningKey is only used when configuration leaves auth.signing_key empty.
const defaultSigningKey = "your-secret-key"

// Session is what signup and login hand back to the client.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// AuthService handles user auth logic
type AuthService struct {
	authRepo   repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.Authorization, signingKey string, tokenTTL time.Duration) *AuthService {
	if signingKey == "" {
		signingKey = defaultSigningKey
	}
	return &AuthService{
		authRepo:   repo,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// SignUp hashes the password, creates the user and returns a session for it.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (Session, error) {
	existing, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return Session{}, persistence("lookup user", err)
	}
	if existing != nil {
		return Session{}, ErrDuplicateUsername
	}

	hash, err := hashPassword(password)
	if err != nil {
		return Session{}, err
	}

	id, err := s.authRepo.Create(ctx, username, hash)
	if err != nil {
		// lost a race with a concurrent signup for the same name
		if errors.Is(err, repository.ErrUsernameTaken) {
			return Session{}, ErrDuplicateUsername
		}
		return Session{}, persistence("create user", err)
	}
	return s.newSession(id, username)
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Login validates credentials and returns a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return Session{}, persistence("lookup user", err)
	}
	if u == nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.newSession(u.ID, u.Username)
}

// ParseToken parses JWT and returns userID
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

func (s *AuthService) newSession(userID, username string) (Session, error) {
	token, err := s.issueToken(userID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID, Username: username}, nil
}

// issueToken signs a JWT for userID. Tokens carry exp only when a TTL is configured.
func (s *AuthService) issueToken(userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
