package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	SetRules(Rules{MaxContentBytes: 32, BannedWords: []string{" SPAM ", "scam"}})
	t.Cleanup(func() { SetRules(Rules{}) })

	if err := ValidateContent("short final runway 27"); err != nil {
		t.Fatalf("valid content rejected: %v", err)
	}
	if err := ValidateContent("   \n\t "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if err := ValidateContent(string([]byte{0xff, 0xfe})); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if err := ValidateContent(strings.Repeat("x", 33)); err == nil {
		t.Fatalf("oversized content should be rejected")
	}
	if err := ValidateContent("total Spam offer"); !errors.Is(err, ErrBannedContent) {
		t.Fatalf("banned word check should be case insensitive, got %v", err)
	}
}

func TestValidateContentNoRules(t *testing.T) {
	SetRules(Rules{})
	if err := ValidateContent(strings.Repeat("y", 100000)); err != nil {
		t.Fatalf("no limit configured, got %v", err)
	}
}

func TestValidateChannelName(t *testing.T) {
	if err := ValidateChannelName("Hangar Talk"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ValidateChannelName("  "); err == nil {
		t.Fatalf("blank name should be rejected")
	}
	if err := ValidateChannelName(strings.Repeat("a", 65)); err == nil {
		t.Fatalf("long name should be rejected")
	}
}

func TestValidateReason(t *testing.T) {
	if err := ValidateReason("spam"); err != nil {
		t.Fatalf("valid reason rejected: %v", err)
	}
	if err := ValidateReason(" "); err == nil {
		t.Fatalf("blank reason should be rejected")
	}
	if err := ValidateReason(strings.Repeat("r", 513)); err == nil {
		t.Fatalf("long reason should be rejected")
	}
}
