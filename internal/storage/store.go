package storage

import (
	"errors"

	"github.com/brk3/routines/pkg/habit"
	"golang.org/x/oauth2"
)

// Sentinel errors implementations map their backend failures onto so callers
// can classify without knowing the backend.
var (
	ErrUnavailable      = errors.New("storage unavailable")
	ErrPermissionDenied = errors.New("storage permission denied")
)

// Store persists one habit.Document per user, plus the API key and oauth2
// token material the auth layer needs. Document writes are whole-document
// replacements; any partial-update discipline lives above this interface.
type Store interface {
	GetDocument(userID string) (*habit.Document, bool, error)
	PutDocument(userID string, doc *habit.Document) error

	GetAPIKey(keyHash string) (userID string, found bool, err error)
	PutAPIKey(keyHash, userID string) error
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error

	GetRefreshToken(userID string) (*oauth2.Token, bool, error)
	PutRefreshToken(userID string, tok *oauth2.Token) error
	DeleteRefreshToken(userID string) error

	Close() error
}
