// Package auth implements optional API-key authentication for serve mode.
// A single key lives in the app dir; when neither the key file nor the
// environment override is present the server runs in open mode.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	keyFileName = "credentials.json"
	envKey      = "TODOLIST_API_KEY"
)

// KeyInfo is the on-disk shape of the credentials file.
type KeyInfo struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"` // "env" | "file"
	CreatedAt time.Time `json:"created_at"`
}

// Service holds the current API key and keeps it fresh when the
// credentials file changes underneath a running server.
type Service struct {
	mu      sync.RWMutex
	dir     string
	key     string
	watcher *fsnotify.Watcher
}

// NewService loads the key for the given app dir and starts watching the
// credentials file for changes. A missing file means open mode.
func NewService(dir string) (*Service, error) {
	s := &Service{dir: dir}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher

	keyPath := filepath.Join(dir, keyFileName)
	if err := watcher.Add(dir); err != nil {
		log.Warn("auth: could not watch app dir", "dir", dir, "err", err)
	}

	go s.watchLoop(keyPath)
	return s, nil
}

// Reload re-reads the key. The environment override wins over the file.
func (s *Service) Reload() error {
	if env := strings.TrimSpace(os.Getenv(envKey)); env != "" {
		s.mu.Lock()
		s.key = env
		s.mu.Unlock()
		return nil
	}

	info, err := readKeyFile(s.dir)
	if err != nil {
		return err
	}
	key := ""
	if info != nil {
		key = info.Key
	}

	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

// IsOpenMode returns true when no key is configured; all requests pass.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key == ""
}

// VerifyKey compares in constant time. Empty keys are always rejected.
func (s *Service) VerifyKey(key string) bool {
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.key)) == 1
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Service) watchLoop(keyPath string) {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != keyPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				if err := s.Reload(); err != nil {
					log.Warn("auth: failed to reload key", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("auth: watcher error", "err", err)
		}
	}
}

// CurrentKey reports the active key, env override first, then the file.
// Returns nil when no key is configured.
func CurrentKey(dir string) (*KeyInfo, error) {
	if env := strings.TrimSpace(os.Getenv(envKey)); env != "" {
		return &KeyInfo{Key: env, Source: "env"}, nil
	}
	return readKeyFile(dir)
}

// SetKey writes the credentials file with owner-only permissions.
func SetKey(dir, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	info := KeyInfo{
		Key:       key,
		Source:    "file",
		CreatedAt: time.Now(),
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyFileName), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// DeleteKey removes the credentials file. Missing file is not an error.
func DeleteKey(dir string) error {
	if err := os.Remove(filepath.Join(dir, keyFileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func readKeyFile(dir string) (*KeyInfo, error) {
	b, err := os.ReadFile(filepath.Join(dir, keyFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var info KeyInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if strings.TrimSpace(info.Key) == "" {
		return nil, nil
	}
	return &info, nil
}
