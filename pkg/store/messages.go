package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/utils"
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

func msgPrimaryKey(channelID string, ts int64, s uint64) string {
	return fmt.Sprintf("channel:%s:msg:%020d-%06d", channelID, ts, s)
}

// SendMessage appends a new message to a channel. When replyTo is set the
// parent author name is denormalized onto the message; an unresolved parent
// id is kept as-is and will be projected as a root downstream.
func (s *Store) SendMessage(m models.Message) (models.Message, error) {
	if s.db == nil {
		return m, fmt.Errorf("store not opened")
	}
	if strings.TrimSpace(m.Content) == "" {
		return m, ErrEmptyContent
	}
	if _, err := s.GetChannel(m.Channel); err != nil {
		return m, fmt.Errorf("channel %s: %w", m.Channel, err)
	}
	if m.ID == "" {
		m.ID = utils.GenMessageID()
	}
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixNano()
	}
	if m.ReplyTo != "" {
		if parent, _, err := s.getRecord(m.ReplyTo); err == nil && !parent.Deleted {
			name := parent.AuthorName
			if name == "" {
				name = parent.Author
			}
			m.ReplyToName = name
		}
	}
	m.Report = nil

	n := atomic.AddUint64(&seq, 1)
	key := msgPrimaryKey(m.Channel, m.TS, n)
	data, err := json.Marshal(m)
	if err != nil {
		return m, fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "channel", m.Channel, "key", key, "error", err)
		return m, err
	}
	if err := s.db.Set(msgIndexKey(m.ID), []byte(key), pebble.Sync); err != nil {
		logger.Error("save_message_index_failed", "msg_id", m.ID, "error", err)
		return m, err
	}
	s.touchChannel(m.Channel, m.TS)
	messagesSent.Inc()
	logger.Info("message_saved", "channel", m.Channel, "msg_id", m.ID, "reply_to", m.ReplyTo)
	return m, nil
}

// getRecord loads a message by id regardless of its deleted flag, returning
// the primary key it is stored under.
func (s *Store) getRecord(id string) (models.Message, string, error) {
	var m models.Message
	if s.db == nil {
		return m, "", fmt.Errorf("store not opened")
	}
	kv, closer, err := s.db.Get(msgIndexKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, "", ErrNotFound
		}
		return m, "", err
	}
	key := string(append([]byte(nil), kv...))
	closer.Close()

	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, "", ErrNotFound
		}
		return m, "", err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &m); err != nil {
		return m, "", fmt.Errorf("invalid stored message: %w", err)
	}
	return m, key, nil
}

// putRecord rewrites a message in place under its existing primary key.
func (s *Store) putRecord(key string, m models.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return s.db.Set([]byte(key), data, pebble.Sync)
}

// GetMessage returns a message by id; soft-deleted messages read as absent.
func (s *Store) GetMessage(id string) (models.Message, error) {
	m, _, err := s.getRecord(id)
	if err != nil {
		return m, err
	}
	if m.Deleted {
		return models.Message{}, ErrNotFound
	}
	return m, nil
}

// ListChannelMessages returns all live messages for a channel in send
// order. An optional limit keeps only the most recent N.
func (s *Store) ListChannelMessages(channelID string, limit ...int) ([]models.Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not opened")
	}
	prefix := channelMsgPrefix(channelID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("skip_invalid_message", "key", string(iter.Key()), "error", err)
			continue
		}
		if m.Deleted {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if len(limit) > 0 && limit[0] > 0 && limit[0] < len(out) {
		out = out[len(out)-limit[0]:]
	}
	return out, nil
}

// EditMessage replaces a message's content. Only the author may edit; a
// blank replacement is rejected without mutating state.
func (s *Store) EditMessage(id, actor, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, ErrEmptyContent
	}
	m, key, err := s.getRecord(id)
	if err != nil {
		return models.Message{}, err
	}
	if m.Deleted {
		return models.Message{}, ErrNotFound
	}
	if m.Author != actor {
		logger.Warn("edit_denied", "msg_id", id, "actor", actor, "author", m.Author)
		return models.Message{}, ErrNotAuthor
	}
	m.Content = content
	m.EditedTS = time.Now().UTC().UnixNano()
	if err := s.putRecord(key, m); err != nil {
		logger.Error("edit_message_failed", "msg_id", id, "error", err)
		return models.Message{}, err
	}
	messagesEdited.Inc()
	logger.Info("message_edited", "msg_id", id, "actor", actor)
	return m, nil
}

// DeleteMessage soft-deletes a message. Only the author (or a caller with
// force, used by moderation rejects) may delete. Under the cascade policy
// replies are deleted recursively; under orphan they survive and are
// projected as thread roots.
func (s *Store) DeleteMessage(id, actor string, force bool) error {
	m, key, err := s.getRecord(id)
	if err != nil {
		return err
	}
	if m.Deleted {
		return ErrNotFound
	}
	if !force && m.Author != actor {
		logger.Warn("delete_denied", "msg_id", id, "actor", actor, "author", m.Author)
		return ErrNotAuthor
	}
	now := time.Now().UTC().UnixNano()
	m.Deleted = true
	m.DeletedTS = now
	m.Pinned = false
	if err := s.putRecord(key, m); err != nil {
		logger.Error("delete_message_failed", "msg_id", id, "error", err)
		return err
	}
	messagesDeleted.Inc()
	logger.Info("message_deleted", "msg_id", id, "actor", actor, "forced", force)

	if s.opts.DeletePolicy == "cascade" {
		if err := s.cascadeDelete(m.Channel, id, now); err != nil {
			return err
		}
	}
	return nil
}

// cascadeDelete walks the channel and deletes all live replies under root,
// transitively.
func (s *Store) cascadeDelete(channelID, root string, now int64) error {
	msgs, err := s.ListChannelMessages(channelID)
	if err != nil {
		return err
	}
	children := make(map[string][]models.Message)
	for _, m := range msgs {
		if m.ReplyTo != "" {
			children[m.ReplyTo] = append(children[m.ReplyTo], m)
		}
	}
	queue := children[root]
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		queue = append(queue, children[m.ID]...)
		rec, key, err := s.getRecord(m.ID)
		if err != nil || rec.Deleted {
			continue
		}
		rec.Deleted = true
		rec.DeletedTS = now
		rec.Pinned = false
		if err := s.putRecord(key, rec); err != nil {
			return err
		}
		messagesDeleted.Inc()
		logger.Info("message_deleted", "msg_id", m.ID, "cascade_from", root)
	}
	return nil
}

// TogglePin flips the pinned flag on a message.
func (s *Store) TogglePin(id string) (models.Message, error) {
	m, key, err := s.getRecord(id)
	if err != nil {
		return models.Message{}, err
	}
	if m.Deleted {
		return models.Message{}, ErrNotFound
	}
	m.Pinned = !m.Pinned
	if err := s.putRecord(key, m); err != nil {
		return models.Message{}, err
	}
	pinsToggled.Inc()
	logger.Info("pin_toggled", "msg_id", id, "pinned", m.Pinned)
	return m, nil
}

// ToggleReaction adds user's vote for emoji, or removes it when already
// present. A reaction entry whose user set becomes empty is pruned, so the
// count == len(users) invariant holds and a pair of toggles restores the
// prior reaction list exactly.
func (s *Store) ToggleReaction(id, user, emoji string) (models.Message, error) {
	if user == "" || emoji == "" {
		return models.Message{}, ErrEmptyContent
	}
	m, key, err := s.getRecord(id)
	if err != nil {
		return models.Message{}, err
	}
	if m.Deleted {
		return models.Message{}, ErrNotFound
	}
	found := false
	for i := range m.Reactions {
		r := &m.Reactions[i]
		if r.Emoji != emoji {
			continue
		}
		found = true
		removed := false
		for j, u := range r.Users {
			if u == user {
				r.Users = append(r.Users[:j], r.Users[j+1:]...)
				removed = true
				break
			}
		}
		if removed {
			r.Count = len(r.Users)
			if r.Count == 0 {
				m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				if len(m.Reactions) == 0 {
					m.Reactions = nil
				}
			}
		} else {
			r.Users = append(r.Users, user)
			r.Count = len(r.Users)
		}
		break
	}
	if !found {
		m.Reactions = append(m.Reactions, models.Reaction{Emoji: emoji, Count: 1, Users: []string{user}})
	}
	if err := s.putRecord(key, m); err != nil {
		return models.Message{}, err
	}
	reactionsToggled.Inc()
	logger.Info("reaction_toggled", "msg_id", id, "emoji", emoji, "user", user)
	return m, nil
}

// touchChannel bumps a channel's UpdatedTS; best-effort.
func (s *Store) touchChannel(id string, ts int64) {
	ch, err := s.GetChannel(id)
	if err != nil {
		return
	}
	if ts > ch.UpdatedTS {
		ch.UpdatedTS = ts
		_ = s.SaveChannel(ch)
	}
}

// PurgeDeleted hard-removes soft-deleted messages older than cutoff (ns),
// up to batch records per call. It returns the number purged (or that would
// be purged, under dryRun).
func (s *Store) PurgeDeleted(cutoff int64, batch int, dryRun bool) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("store not opened")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	type victim struct{ key, id string }
	var victims []victim
	prefix := []byte("channel:")
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.Contains(string(iter.Key()), ":msg:") {
			continue
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		if !m.Deleted || m.DeletedTS == 0 || m.DeletedTS > cutoff {
			continue
		}
		victims = append(victims, victim{key: string(append([]byte(nil), iter.Key()...)), id: m.ID})
		if batch > 0 && len(victims) >= batch {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if dryRun {
		return len(victims), nil
	}
	for _, v := range victims {
		if err := s.db.Delete([]byte(v.key), pebble.Sync); err != nil {
			return 0, err
		}
		if err := s.db.Delete(msgIndexKey(v.id), pebble.Sync); err != nil {
			return 0, err
		}
	}
	if len(victims) > 0 {
		logger.Info("purged_deleted_messages", "count", len(victims))
	}
	return len(victims), nil
}
