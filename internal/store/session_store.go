package store

import (
	"context"
	"path/filepath"
	"sync"

	"dappconnect/internal/domain"
)

const sessionsFilename = "sessions.json"

// FileSessionStore keeps every session in one JSON file under dir. With a
// passphrase the file is sealed with scrypt and ChaCha20-Poly1305, since it
// holds session keys.
type FileSessionStore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewFileSessionStore returns a store rooted at dir. An empty passphrase
// stores plaintext JSON.
func NewFileSessionStore(dir, passphrase string) *FileSessionStore {
	return &FileSessionStore{dir: dir, passphrase: passphrase}
}

// SaveSession writes s, replacing any record with the same client id.
func (s *FileSessionStore) SaveSession(_ context.Context, sess domain.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	sessions[sess.ClientID] = sess
	return saveJSON(s.path(), s.passphrase, sessions, 0o600)
}

// LoadSession retrieves the session for clientID.
func (s *FileSessionStore) LoadSession(_ context.Context, clientID string) (domain.StoredSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return domain.StoredSession{}, false, err
	}
	sess, ok := sessions[clientID]
	return sess, ok, nil
}

// DeleteSession removes the session for clientID; a missing one is fine.
func (s *FileSessionStore) DeleteSession(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[clientID]; !ok {
		return nil
	}
	delete(sessions, clientID)
	return saveJSON(s.path(), s.passphrase, sessions, 0o600)
}

// ListSessions returns every stored client id.
func (s *FileSessionStore) ListSessions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *FileSessionStore) path() string { return filepath.Join(s.dir, sessionsFilename) }

func (s *FileSessionStore) load() (map[string]domain.StoredSession, error) {
	sessions := map[string]domain.StoredSession{}
	if err := loadJSON(s.path(), s.passphrase, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Compile-time assertion that FileSessionStore implements domain.SessionStore.
var _ domain.SessionStore = (*FileSessionStore)(nil)
