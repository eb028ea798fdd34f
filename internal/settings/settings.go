// Package settings persists the user-editable answer backend settings
// between runs.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/config"
)

// DefaultPath is where settings live unless overridden.
const DefaultPath = "~/.autofill/settings.yaml"

const (
	KeyAPIKey    = "api_key"
	KeySessionID = "session_id"
	KeyBaseURL   = "base_url"
)

// ErrUnknownKey is returned for keys outside the persisted set.
var ErrUnknownKey = errors.New("unknown settings key")

var _ answers.SessionSaver = (*Store)(nil)

// Settings are the persisted values. Empty means unset.
type Settings struct {
	APIKey    string `json:"api_key,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
}

// Patch updates the fields that are non-nil. An empty string clears a field.
type Patch struct {
	APIKey    *string `json:"api_key"`
	SessionID *string `json:"session_id"`
	BaseURL   *string `json:"base_url"`
}

// Store reads and writes settings in a YAML file.
type Store struct {
	mu     sync.RWMutex
	v      *viper.Viper
	path   string
	logger *zap.Logger
}

// Open loads settings from path. A missing file is an empty store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding settings path %q: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(expanded)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading settings %s: %w", expanded, err)
		}
	}
	return &Store{v: v, path: expanded, logger: logger.Named("settings")}, nil
}

// Path is the resolved settings file.
func (s *Store) Path() string { return s.path }

// Keys lists the settable keys.
func Keys() []string {
	keys := []string{KeyAPIKey, KeySessionID, KeyBaseURL}
	sort.Strings(keys)
	return keys
}

func validKey(key string) bool {
	switch key {
	case KeyAPIKey, KeySessionID, KeyBaseURL:
		return true
	}
	return false
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		APIKey:    s.v.GetString(KeyAPIKey),
		SessionID: s.v.GetString(KeySessionID),
		BaseURL:   s.v.GetString(KeyBaseURL),
	}
}

// Value returns one setting.
func (s *Store) Value(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key), nil
}

// Set writes one setting and saves the file.
func (s *Store) Set(key, value string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.save()
}

// Update applies p and saves the file.
func (s *Store) Update(p Patch) (Settings, error) {
	s.mu.Lock()
	for key, val := range map[string]*string{KeyAPIKey: p.APIKey, KeySessionID: p.SessionID, KeyBaseURL: p.BaseURL} {
		if val != nil {
			s.v.Set(key, *val)
		}
	}
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return Settings{}, err
	}
	return s.Get(), nil
}

// SaveSessionID persists the active session.
func (s *Store) SaveSessionID(_ context.Context, sessionID string) error {
	return s.Set(KeySessionID, sessionID)
}

// ApplyTo overlays the non-empty settings onto cfg.
func (s *Store) ApplyTo(cfg config.Interface) {
	cur := s.Get()
	if cur.BaseURL != "" {
		cfg.SetAnswersBaseURL(cur.BaseURL)
	}
	if cur.APIKey != "" {
		cfg.SetAnswersAPIKey(cur.APIKey)
	}
	if cur.SessionID != "" {
		cfg.SetAnswersSessionID(cur.SessionID)
	}
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing settings %s: %w", s.path, err)
	}
	// The file holds the API key.
	if err := os.Chmod(s.path, 0o600); err != nil {
		s.logger.Warn("Could not restrict settings file permissions", zap.Error(err))
	}
	s.logger.Debug("Settings saved", zap.String("path", s.path))
	return nil
}
