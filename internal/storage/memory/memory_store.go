// Package memory provides an in-process Store used by tests.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/brk3/routines/internal/storage"
	"github.com/brk3/routines/pkg/habit"
	"golang.org/x/oauth2"
)

type Store struct {
	mu      sync.RWMutex
	docs    map[string][]byte
	apiKeys map[string]string
	tokens  map[string]*oauth2.Token
}

func New() *Store {
	return &Store{
		docs:    map[string][]byte{},
		apiKeys: map[string]string{},
		tokens:  map[string]*oauth2.Token{},
	}
}

func (m *Store) GetDocument(userID string) (*habit.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.docs[userID]
	if !ok {
		return nil, false, nil
	}
	doc := &habit.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (m *Store) PutDocument(userID string, doc *habit.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = raw
	return nil
}

func (m *Store) GetAPIKey(keyHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.apiKeys[keyHash]
	return userID, ok, nil
}

func (m *Store) PutAPIKey(keyHash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeys[keyHash] = userID
	return nil
}

func (m *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hashes []string
	for hash, uid := range m.apiKeys {
		if uid == userID {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

func (m *Store) DeleteAPIKey(keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apiKeys, keyHash)
	return nil
}

func (m *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[userID]
	return tok, ok, nil
}

func (m *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = tok
	return nil
}

func (m *Store) DeleteRefreshToken(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

func (m *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
