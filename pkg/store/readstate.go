package store

import (
	"fmt"
	"strconv"
	"strings"
)

func readKey(user, channel string) string { return "read:" + user + ":" + channel }

// MarkRead advances user's read watermark for a channel to ts (ns). A stale
// ts never moves the watermark backwards.
func (s *Store) MarkRead(user, channel string, ts int64) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	if user == "" || channel == "" {
		return ErrEmptyContent
	}
	if last, err := s.LastRead(user, channel); err == nil && last >= ts {
		return nil
	}
	return s.SaveKey(readKey(user, channel), []byte(strconv.FormatInt(ts, 10)))
}

// LastRead returns user's read watermark for a channel, zero when unset.
func (s *Store) LastRead(user, channel string) (int64, error) {
	v, err := s.GetKey(readKey(user, channel))
	if err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid read watermark: %w", err)
	}
	return n, nil
}

// UnreadCount counts live messages in a channel newer than user's
// watermark. Messages sent by the user do not count as unread.
func (s *Store) UnreadCount(user, channel string) (int, error) {
	last, err := s.LastRead(user, channel)
	if err != nil {
		return 0, err
	}
	msgs, err := s.ListChannelMessages(channel)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		if m.TS > last && m.Author != user {
			n++
		}
	}
	return n, nil
}
