package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

const testKey = "test-signing-key"

// mockAuthRepo is a lightweight in-test mock for repository.Authorization.
type mockAuthRepo struct {
	CreateFn        func(username, hash string) (string, error)
	GetByUsernameFn func(username string) (*models.User, error)
	GetByIDFn       func(id string) (*models.User, error)

	createCalls []struct {
		username string
		hash     string
	}
	getCalls []string
}

func (m *mockAuthRepo) Create(ctx context.Context, username, hash string) (string, error) {
	m.createCalls = append(m.createCalls, struct {
		username string
		hash     string
	}{username: username, hash: hash})
	return m.CreateFn(username, hash)
}

func (m *mockAuthRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.getCalls = append(m.getCalls, username)
	if m.GetByUsernameFn == nil {
		return nil, nil
	}
	return m.GetByUsernameFn(username)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(id)
}

// --- SignUp tests ---

func TestAuthService_SignUp_SuccessHashesPasswordAndCallsRepo(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (string, error) {
			return "u-42", nil
		},
	}
	svc := NewAuthService(mock, testKey, 0)

	session, err := svc.SignUp(context.Background(), "alice", "s3cr3t")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if session.UserID != "u-42" || session.Username != "alice" || session.Token == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if uid, err := svc.ParseToken(session.Token); err != nil || uid != "u-42" {
		t.Fatalf("session token parses to (%q, %v)", uid, err)
	}

	// Ensure Create called exactly once with hashed password (not equal to raw) and valid bcrypt.
	if len(mock.createCalls) != 1 {
		t.Fatalf("expected 1 Create call, got %d", len(mock.createCalls))
	}
	call := mock.createCalls[0]
	if call.username != "alice" {
		t.Errorf("expected username 'alice', got %q", call.username)
	}
	if call.hash == "s3cr3t" {
		t.Errorf("expected hashed password not equal to raw password")
	}
	if err := verifyPassword(call.hash, "s3cr3t"); err != nil {
		t.Errorf("stored hash does not verify with original password: %v", err)
	}
}

func TestAuthService_SignUp_EmptyPassword(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (string, error) {
			t.Fatal("Create should not be called for empty password")
			return "", nil
		},
	}
	svc := NewAuthService(mock, testKey, 0)

	_, err := svc.SignUp(context.Background(), "bob", "   ")
	if !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if len(mock.createCalls) != 0 {
		t.Fatalf("expected no Create calls, got %d", len(mock.createCalls))
	}
}

func TestAuthService_SignUp_DuplicateUsername(t *testing.T) {
	existing := &mockAuthRepo{
		GetByUsernameFn: func(string) (*models.User, error) {
			return &models.User{ID: "u1", Username: "alice"}, nil
		},
		CreateFn: func(string, string) (string, error) {
			t.Fatal("Create should not be called for a taken name")
			return "", nil
		},
	}
	if _, err := NewAuthService(existing, testKey, 0).SignUp(context.Background(), "alice", "pw"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("pre-check: expected ErrDuplicateUsername, got %v", err)
	}

	// a concurrent signup wins between the pre-check and the insert
	race := &mockAuthRepo{
		CreateFn: func(username, _ string) (string, error) {
			return "", errors.Join(errors.New("insert user"), repository.ErrUsernameTaken)
		},
	}
	if _, err := NewAuthService(race, testKey, 0).SignUp(context.Background(), "alice", "pw"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("unique violation: expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_SignUp_RepoError(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (string, error) {
			return "", errors.New("db down")
		},
	}
	svc := NewAuthService(mock, testKey, 0)

	_, err := svc.SignUp(context.Background(), "carl", "pass123")
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
}

// --- Login tests ---

func TestAuthService_Login_Success(t *testing.T) {
	hash, err := hashPassword("letmein")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	user := &models.User{ID: "u-7", Username: "diana", PasswordHash: hash}

	mock := &mockAuthRepo{
		GetByUsernameFn: func(username string) (*models.User, error) {
			if username != "diana" {
				t.Fatalf("expected username 'diana', got %q", username)
			}
			return user, nil
		},
	}
	svc := NewAuthService(mock, testKey, time.Hour)

	session, err := svc.Login(context.Background(), "diana", "letmein")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.UserID != "u-7" || session.Username != "diana" {
		t.Fatalf("unexpected session %+v", session)
	}

	parsed, err := jwt.ParseWithClaims(session.Token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(testKey), nil
	})
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	claims := parsed.Claims.(*Claims)
	if claims.UserID != "u-7" || claims.ExpiresAt == nil {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	hash, _ := hashPassword("right")
	cases := []struct {
		name    string
		lookup  func(string) (*models.User, error)
		wantErr error
	}{
		{"unknown user", func(string) (*models.User, error) { return nil, nil }, ErrInvalidCredentials},
		{"wrong password", func(string) (*models.User, error) {
			return &models.User{ID: "u1", Username: "x", PasswordHash: hash}, nil
		}, ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAuthService(&mockAuthRepo{GetByUsernameFn: tc.lookup}, testKey, 0)
			if _, err := svc.Login(context.Background(), "x", "wrong"); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}

	svc := NewAuthService(&mockAuthRepo{GetByUsernameFn: func(string) (*models.User, error) {
		return nil, errors.New("db down")
	}}, testKey, 0)
	_, err := svc.Login(context.Background(), "x", "pw")
	var perr *PersistenceError
	if !errors.As(err, &perr) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failure should surface as *PersistenceError, got %v", err)
	}
}

// --- ParseToken tests ---

func signClaims(t *testing.T, key string, claims *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func TestAuthService_ParseToken_Success(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)
	token, err := svc.issueToken("u-99")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	uid, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if uid != "u-99" {
		t.Fatalf("expected user id u-99, got %q", uid)
	}
}

func TestAuthService_ParseToken_Malformed(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)
	for _, tok := range []string{"", "not-a-jwt"} {
		if _, err := svc.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestAuthService_ParseToken_InvalidSignature(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)

	now := time.Now()
	badToken := signClaims(t, "different-key", &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: "u-5",
	})

	if _, err := svc.ParseToken(badToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature verification error, got %v", err)
	}
}

func TestAuthService_ParseToken_Expired(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.issueToken("u-11")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}
	if _, err := svc.ParseToken(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected error for expired token, got %v", err)
	}
}

func TestAuthService_ParseToken_NoExpiryWhenTTLZero(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.issueToken("u-12")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	svc.now = func() time.Time { return issued.AddDate(5, 0, 0) }
	if uid, err := svc.ParseToken(token); err != nil || uid != "u-12" {
		t.Fatalf("token without exp should stay valid, got (%q, %v)", uid, err)
	}
}

func TestAuthService_ParseToken_MissingUserID(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)
	token := signClaims(t, testKey, &Claims{})
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_ParseToken_UnexpectedAlg(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testKey, 0)

	now := time.Now()

	// Generate RSA key for RS256 signing
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	tk := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: "u-12",
	})

	tokenStr, err := tk.SignedString(privateKey)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := svc.ParseToken(tokenStr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected error for unexpected alg, got %v", err)
	}
}

func TestNewAuthService_DefaultKey(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, "", 0)
	token, err := svc.issueToken("u1")
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	other := NewAuthService(&mockAuthRepo{}, defaultSigningKey, 0)
	if uid, err := other.ParseToken(token); err != nil || uid != "u1" {
		t.Fatalf("default key mismatch: (%q, %v)", uid, err)
	}
}
