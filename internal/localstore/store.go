// Package localstore is the durable per-profile storage medium: the
// participant identity, the polling-backed sync log, and the child-window
// fallback slots all live in one bbolt file. Writers only append and cap
// the log; readers keep their own last-seen cursor and never mutate it,
// so concurrent readers and the single writer need no further locking.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/quickassist/collab-server-go/internal/model"
)

const (
	bucketIdentity = "identity"
	bucketSyncLog  = "synclog"
	bucketFallback = "fallback"

	identityKey = "participant_id"
)

// DefaultRetention caps each per-session event log. Older events are
// superseded by whole-buffer replacement, so only the tail matters.
const DefaultRetention = 50

type Store struct {
	db        *bolt.DB
	retention int
}

// Open creates or opens the profile store at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketIdentity, bucketSyncLog, bucketFallback} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init profile store: %w", err)
	}

	return &Store{db: db, retention: DefaultRetention}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetIdentity returns the persisted participant id, or "" if none exists yet.
func (s *Store) GetIdentity() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketIdentity)).Get([]byte(identityKey)); v != nil {
			id = string(v)
		}
		return nil
	})
	return id, err
}

// PutIdentity persists the participant id. It refuses to overwrite an
// existing one: the identity is immutable after creation.
func (s *Store) PutIdentity(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketIdentity))
		if existing := b.Get([]byte(identityKey)); existing != nil {
			return fmt.Errorf("participant identity already set")
		}
		return b.Put([]byte(identityKey), []byte(id))
	})
}

// AppendEvent appends one sync event to the session's log, dropping the
// oldest entries beyond the retention cap. Event ids sort in creation
// order, so bbolt's key ordering is the log order.
func (s *Store) AppendEvent(evt model.SyncEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal sync event: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		log, err := tx.Bucket([]byte(bucketSyncLog)).CreateBucketIfNotExists([]byte(evt.SharedSessionID))
		if err != nil {
			return err
		}
		if err := log.Put([]byte(evt.ID), data); err != nil {
			return err
		}

		// Cap drops oldest, never newest.
		var keys [][]byte
		c := log.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-s.retention; i++ {
			if err := log.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// EventsAfter returns the session's logged events with id greater than
// afterID, excluding those originated by excludeOrigin, in log order.
func (s *Store) EventsAfter(sharedSessionID, afterID, excludeOrigin string) ([]model.SyncEvent, error) {
	var events []model.SyncEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		log := tx.Bucket([]byte(bucketSyncLog)).Bucket([]byte(sharedSessionID))
		if log == nil {
			return nil
		}

		c := log.Cursor()
		var k, v []byte
		if afterID == "" {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(afterID))
			if k != nil && string(k) == afterID {
				k, v = c.Next()
			}
		}
		for ; k != nil; k, v = c.Next() {
			var evt model.SyncEvent
			if err := json.Unmarshal(v, &evt); err != nil {
				continue
			}
			if evt.OriginParticipantID == excludeOrigin {
				continue
			}
			events = append(events, evt)
		}
		return nil
	})
	return events, err
}

// DeleteLog removes a session's event log entirely.
func (s *Store) DeleteLog(sharedSessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSyncLog))
		if b.Bucket([]byte(sharedSessionID)) == nil {
			return nil
		}
		return b.DeleteBucket([]byte(sharedSessionID))
	})
}

// Slot is the child-window fallback: the latest full buffer for one
// session+language pair.
type Slot struct {
	CodeContent string `json:"codeContent"`
	Language    string `json:"language"`
}

func slotKey(ownerSessionID, language string) []byte {
	return []byte(ownerSessionID + ":" + language)
}

func (s *Store) PutSlot(ownerSessionID, language, codeContent string) error {
	data, err := json.Marshal(Slot{CodeContent: codeContent, Language: language})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketFallback)).Put(slotKey(ownerSessionID, language), data)
	})
}

func (s *Store) GetSlot(ownerSessionID, language string) (*Slot, error) {
	var slot *Slot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketFallback)).Get(slotKey(ownerSessionID, language))
		if v == nil {
			return nil
		}
		var sl Slot
		if err := json.Unmarshal(v, &sl); err != nil {
			return err
		}
		slot = &sl
		return nil
	})
	return slot, err
}
