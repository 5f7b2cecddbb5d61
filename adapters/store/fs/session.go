package storefs

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goliatone/go-invoices/session"
)

// SessionFile persists the logged-in session as a JSON file.
type SessionFile struct {
	Path string

	mu sync.Mutex
}

var _ session.Store = (*SessionFile)(nil)

// NewSessionFile creates a session store at path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{Path: path}
}

func (f *SessionFile) Load(ctx context.Context) (session.Session, bool, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		// a corrupt file is the same as no session
		return session.Session{}, false, nil
	}
	return s, s.Valid(), nil
}

func (f *SessionFile) Save(ctx context.Context, s session.Session) error {
	_ = ctx
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return writeAtomic(dir, f.Path, ".session-*", func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
}

func (f *SessionFile) Clear(ctx context.Context) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
