package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
)

var (
	// ErrNotFound is returned when a message or channel does not exist
	// (soft-deleted messages count as not found for readers).
	ErrNotFound = errors.New("not found")
	// ErrNotAuthor is returned when a mutation requires message authorship.
	ErrNotAuthor = errors.New("not the author")
	// ErrEmptyContent rejects blank sends and edits without mutating state.
	ErrEmptyContent = errors.New("empty content")
)

// Options control store behavior decided at startup.
type Options struct {
	// DeletePolicy is "orphan" (replies survive a parent delete and become
	// thread roots) or "cascade" (replies are deleted with the parent).
	DeletePolicy string
}

// Store is the single source of truth for channels, messages and read
// state, backed by an embedded Pebble database. All methods are safe for
// use from concurrent HTTP handlers because Pebble serializes writes; the
// store itself holds no mutable in-memory state.
type Store struct {
	db   *pebble.DB
	path string
	opts Options
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string, opts Options) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = "orphan"
	}
	logger.Info("pebble_opened", "path", path, "delete_policy", opts.DeletePolicy)
	return &Store{db: db, path: path, opts: opts}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// DeletePolicy returns the configured reply-delete policy.
func (s *Store) DeletePolicy() string { return s.opts.DeletePolicy }

// --- key layout ---
//
//   channel:<id>:meta                     channel metadata JSON
//   channel:<id>:msg:<padded_ts>-<seq>    message JSON, ordered by send time
//   msgidx:<msgID>                        primary message key (id lookup)
//   category:<name>                       category set member
//   read:<user>:<channel>                 last-read timestamp (ns)
//   report:msg:<msgID>                    report ledger entry (pkg/ledger)

func channelMetaKey(id string) []byte   { return []byte("channel:" + id + ":meta") }
func channelMsgPrefix(id string) []byte { return []byte("channel:" + id + ":msg:") }
func msgIndexKey(id string) []byte      { return []byte("msgidx:" + id) }

// SaveChannel persists channel metadata, stripping derived fields so a
// stale Active/Unread stamp never leaks into the store.
func (s *Store) SaveChannel(ch models.Channel) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	ch.Active = false
	ch.Unread = 0
	ch.Synthetic = false
	if ch.Category == "" {
		ch.Category = models.DefaultCategory
	}
	b, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal channel: %w", err)
	}
	if err := s.db.Set(channelMetaKey(ch.ID), b, pebble.Sync); err != nil {
		logger.Error("save_channel_failed", "channel", ch.ID, "error", err)
		return err
	}
	if err := s.AddCategory(ch.Category); err != nil {
		return err
	}
	logger.Info("channel_saved", "channel", ch.ID, "category", ch.Category)
	return nil
}

// GetChannel returns the stored channel metadata for an id.
func (s *Store) GetChannel(id string) (models.Channel, error) {
	var ch models.Channel
	if s.db == nil {
		return ch, fmt.Errorf("store not opened")
	}
	v, closer, err := s.db.Get(channelMetaKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ch, ErrNotFound
		}
		return ch, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &ch); err != nil {
		return ch, fmt.Errorf("invalid channel metadata: %w", err)
	}
	return ch, nil
}

// ListChannels returns all stored channels sorted by creation time.
func (s *Store) ListChannels() ([]models.Channel, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not opened")
	}
	prefix := []byte("channel:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Channel
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var ch models.Channel
		if err := json.Unmarshal(iter.Value(), &ch); err != nil {
			logger.Warn("skip_invalid_channel", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, ch)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTS < out[j].CreatedTS })
	return out, nil
}

// AddCategory records a category label; adding an existing one is a no-op.
func (s *Store) AddCategory(name string) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyContent
	}
	return s.db.Set([]byte("category:"+name), nil, pebble.Sync)
}

// ListCategories returns all known category labels sorted alphabetically.
func (s *Store) ListCategories() ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not opened")
	}
	prefix := []byte("category:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		out = append(out, strings.TrimPrefix(string(iter.Key()), "category:"))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// --- generic key helpers used by the ledger, admin surface and sweeper ---

// GetKey returns the raw value for the given key.
func (s *Store) GetKey(key string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("store not opened")
	}
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}

// SaveKey stores an arbitrary key/value pair. Callers should choose a safe
// namespace (e.g. "report:msg:").
func (s *Store) SaveKey(key string, value []byte) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	return s.db.Set([]byte(key), value, pebble.Sync)
}

// DeleteKey removes a raw key.
func (s *Store) DeleteKey(key string) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	return s.db.Delete([]byte(key), pebble.Sync)
}

// ListKeys returns all keys that start with the given prefix; an empty
// prefix returns every key in the database.
func (s *Store) ListKeys(prefix string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not opened")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	if prefix == "" {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(append([]byte(nil), iter.Key()...)))
		}
		return out, iter.Error()
	}
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}
