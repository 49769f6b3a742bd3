package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rules carries the content policy applied to every inbound message. Set
// once at startup from configuration.
type Rules struct {
	MaxContentBytes int
	BannedWords     []string
}

var rules Rules

func SetRules(r Rules) {
	// lowercase the banned list once so checks stay cheap
	for i, w := range r.BannedWords {
		r.BannedWords[i] = strings.ToLower(strings.TrimSpace(w))
	}
	rules = r
}

var (
	ErrEmptyContent  = errors.New("content is empty")
	ErrInvalidUTF8   = errors.New("content is not valid utf-8")
	ErrBannedContent = errors.New("content contains banned words")
)

// ValidateContent applies the content policy to a message body. Whitespace
// only bodies count as empty.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if !utf8.ValidString(content) {
		return ErrInvalidUTF8
	}
	if rules.MaxContentBytes > 0 && len(content) > rules.MaxContentBytes {
		return fmt.Errorf("content exceeds %d bytes", rules.MaxContentBytes)
	}
	lc := strings.ToLower(content)
	for _, w := range rules.BannedWords {
		if w == "" {
			continue
		}
		if strings.Contains(lc, w) {
			return ErrBannedContent
		}
	}
	return nil
}

// ValidateChannelName checks a channel display name before the directory
// accepts it.
func ValidateChannelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("channel name is empty")
	}
	if utf8.RuneCountInString(name) > 64 {
		return errors.New("channel name too long")
	}
	return nil
}

// ValidateReason checks a report reason string.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return errors.New("reason is empty")
	}
	if len(reason) > 512 {
		return errors.New("reason too long")
	}
	return nil
}
