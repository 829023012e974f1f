package bolt

import (
	"encoding/json"
	"fmt"

	"github.com/brk3/routines/internal/storage"
	"github.com/brk3/routines/pkg/habit"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

const (
	usersBucket   = "users"
	apiKeysBucket = "apikeys"
	tokensBucket  = "tokens"

	documentKey = "document"
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range []string{usersBucket, apiKeysBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) userBucket(tx *bbolt.Tx, userID string) (*bbolt.Bucket, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	return tx.Bucket([]byte(usersBucket)).CreateBucketIfNotExists([]byte(userID))
}

func (s *Store) GetDocument(userID string) (*habit.Document, bool, error) {
	var doc *habit.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket)).Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(documentKey))
		if raw == nil {
			return nil
		}
		doc = &habit.Document{}
		return json.Unmarshal(raw, doc)
	})
	if err != nil {
		return nil, false, fmt.Errorf("get document: %w", err)
	}
	return doc, doc != nil, nil
}

func (s *Store) PutDocument(userID string, doc *habit.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.userBucket(tx, userID)
		if err != nil {
			return err
		}
		val, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(documentKey), val)
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeysBucket)).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return userID, userID != "", nil
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	var hashes []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				hashes = append(hashes, string(k))
			}
			return nil
		})
	})
	return hashes, err
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Delete([]byte(keyHash))
	})
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(tokensBucket)).Get([]byte(userID))
		if raw == nil {
			return nil
		}
		tok = &oauth2.Token{}
		return json.Unmarshal(raw, tok)
	})
	if err != nil {
		return nil, false, err
	}
	return tok, tok != nil, nil
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(tokensBucket)).Put([]byte(userID), val)
	})
}

func (s *Store) DeleteRefreshToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokensBucket)).Delete([]byte(userID))
	})
}

var _ storage.Store = (*Store)(nil)
