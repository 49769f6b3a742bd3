package models

// Reaction aggregates a single emoji on a message. Count must always equal
// len(Users); the store enforces this on every toggle.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type Message struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	// Author is an opaque identity id (clients manage meaning)
	Author       string `json:"author"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
	Content      string `json:"content"`
	TS           int64  `json:"ts"`
	EditedTS     int64  `json:"edited_ts,omitempty"`
	Pinned       bool   `json:"pinned,omitempty"`
	// ReplyTo references the parent message id. A reply whose parent no
	// longer resolves is projected as a root, never dropped.
	ReplyTo string `json:"reply_to,omitempty"`
	// ReplyToName is the denormalized parent author name, resolved at send time.
	ReplyToName string     `json:"reply_to_name,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
	// Deleted marks a soft-deleted message; the sweeper purges these later.
	Deleted   bool  `json:"deleted,omitempty"`
	DeletedTS int64 `json:"deleted_ts,omitempty"`

	// Report is populated only when the message is projected into the
	// moderation queue; it is never persisted on the message record.
	Report *ReportInfo `json:"report,omitempty"`
}

// ReactionBy reports whether user already voted emoji on this message.
func (m *Message) ReactionBy(user, emoji string) bool {
	for _, r := range m.Reactions {
		if r.Emoji != emoji {
			continue
		}
		for _, u := range r.Users {
			if u == user {
				return true
			}
		}
	}
	return false
}
