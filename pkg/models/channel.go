package models

// DefaultCategory is used when a channel is created without a category.
const DefaultCategory = "Other"

// ModerationChannelID is the well-known id of the synthetic moderation
// queue channel. The directory injects it for capable viewers only; it is
// never persisted.
const ModerationChannelID = "moderation"

type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Category string `json:"category,omitempty"`
	// Slug is generated from name and id for human-friendly URLs
	Slug      string `json:"slug,omitempty"`
	CreatedTS int64  `json:"created_ts,omitempty"`
	UpdatedTS int64  `json:"updated_ts,omitempty"`

	// Unread and Active are derived per viewer on every directory resolve;
	// they are stamped on copies, never written back to the store.
	Unread int  `json:"unread"`
	Active bool `json:"active"`
	// Synthetic marks directory-injected channels (the moderation queue).
	Synthetic bool `json:"synthetic,omitempty"`
}
