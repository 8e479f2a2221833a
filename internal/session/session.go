// Package session holds the single client-side credential record.
//
// Every page reads the session to choose between the anonymous, user and
// admin variants of its view. Only login, register and logout write it.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	toml "github.com/pelletier/go-toml/v2"
)

// Role is the backend role attached to a session.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Session is the credential record persisted between runs.
type Session struct {
	Token  string `toml:"token"`
	Role   Role   `toml:"role"`
	UserID string `toml:"user_id"`
	Avatar string `toml:"avatar"`
}

// Anonymous reports whether no user is logged in.
func (s Session) Anonymous() bool {
	return s.Role == "" || s.Token == ""
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return !s.Anonymous() && s.Role == RoleAdmin
}

// Owns reports whether userID is the logged in user.
func (s Session) Owns(userID string) bool {
	return !s.Anonymous() && userID != "" && s.UserID == userID
}

// CanDelete reports whether the session may delete content authored by userID.
func (s Session) CanDelete(authorID string) bool {
	return s.IsAdmin() || s.Owns(authorID)
}

// Store reads and writes the session. Implementations are safe for
// concurrent use.
type Store interface {
	Get() (Session, bool)
	Set(Session) error
	Clear() error
}

// MemoryStore keeps the session in memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
	ok      bool
}

// Get returns the current session.
func (m *MemoryStore) Get() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.ok
}

// Set replaces the current session.
func (m *MemoryStore) Set(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.ok = true
	return nil
}

// Clear removes the current session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.ok = false
	return nil
}

// FileStore persists the session as TOML. The file is read once when the
// store is opened; later reads are served from memory.
type FileStore struct {
	path string

	mu      sync.RWMutex
	session Session
	ok      bool
}

// Open loads the session file at path. A missing or unreadable file yields an
// anonymous store rather than an error.
func Open(path string) (*FileStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("session path is empty")
	}
	fs := &FileStore{path: trimmed}

	bytes, err := os.ReadFile(trimmed)
	if err != nil {
		return fs, nil
	}
	var s Session
	if err := toml.Unmarshal(bytes, &s); err != nil {
		return fs, nil
	}
	if !s.Anonymous() {
		fs.session = s
		fs.ok = true
	}
	return fs, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the current session.
func (f *FileStore) Get() (Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session, f.ok
}

// Set writes the session to disk with owner-only permissions and keeps it in
// memory.
func (f *FileStore) Set(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	bytes, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	f.session = s
	f.ok = true
	return nil
}

// Clear deletes the session file and forgets the in-memory copy.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	f.session = Session{}
	f.ok = false
	return nil
}

// Current returns the session held by store, or an anonymous session.
func Current(store Store) Session {
	if store == nil {
		return Session{}
	}
	s, ok := store.Get()
	if !ok {
		return Session{}
	}
	return s
}

// TokenClaims is the informational subset of the bearer token's claims.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims decodes the token's claims without verifying the signature. The
// client never enforces expiry itself; this is for display only.
func Claims(token string) (TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return TokenClaims{}, fmt.Errorf("token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("decode token: %w", err)
	}
	var out TokenClaims
	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	} else if id, ok := claims["_id"].(string); ok {
		out.Subject = id
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
