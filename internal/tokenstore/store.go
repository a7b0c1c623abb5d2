// Package tokenstore persists the session token between authctl runs and
// serves it to the request executor as a request.TokenProvider.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/authclient/pkg/request"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Session is what gets stored after a successful login or refresh.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Username    string    `json:"username,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Store saves and loads a session.
type Store interface {
	request.TokenProvider
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Memory keeps the session in process memory.
type Memory struct {
	mu      sync.RWMutex
	session Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken, nil
}

func (m *Memory) Load(context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session.AccessToken == "" {
		return Session{}, ErrNoToken
	}
	return m.session, nil
}

func (m *Memory) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()
	return nil
}

// File keeps the session in a JSON file readable only by the owner. The
// file is re-read on every Token call so separate processes share it.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a store backed by path. The file is created on first Save.
func NewFile(path string) *File { return &File{path: path} }

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) Token(ctx context.Context) (string, error) {
	s, err := f.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

func (f *File) Load(context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %s: %w", ErrCorruptStore, f.path, err)
	}
	if s.AccessToken == "" {
		return Session{}, ErrNoToken
	}
	return s, nil
}

func (f *File) Save(_ context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	// atomic replace; readers never see a partial file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}
