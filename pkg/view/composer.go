package view

import (
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/store"
	"hangartalk/pkg/threads"
)

// Composer assembles per-channel presentation views from the store and the
// report ledger. The moderation channel is virtual: its message list is the
// review queue rather than stored channel content.
type Composer struct {
	st  *store.Store
	led *ledger.Ledger
}

func New(st *store.Store, led *ledger.Ledger) *Composer {
	return &Composer{st: st, led: led}
}

// Messages returns the message list for a channel view. For the moderation
// channel it returns the reported messages across all channels, each
// annotated with its report entry, ordered most-reported first. For every
// other channel it returns that channel's live messages in send order.
func (c *Composer) Messages(channelID string) ([]models.Message, error) {
	if channelID == models.ModerationChannelID {
		return c.queue()
	}
	return c.st.ListChannelMessages(channelID)
}

// Threaded returns the channel's messages projected into a reply forest.
// The moderation channel is never threaded; its queue is returned as flat
// roots so reported replies stay individually reviewable.
func (c *Composer) Threaded(channelID string) (threads.Forest, error) {
	msgs, err := c.Messages(channelID)
	if err != nil {
		return threads.Forest{}, err
	}
	if channelID == models.ModerationChannelID {
		flat := make([]models.Message, len(msgs))
		for i, m := range msgs {
			m.ReplyTo = ""
			flat[i] = m
		}
		return threads.Project(flat), nil
	}
	return threads.Project(msgs), nil
}

// Pinned returns the pinned messages of a channel in send order. The
// moderation channel has no pinned view.
func (c *Composer) Pinned(channelID string) ([]models.Message, error) {
	if channelID == models.ModerationChannelID {
		return nil, nil
	}
	msgs, err := c.st.ListChannelMessages(channelID)
	if err != nil {
		return nil, err
	}
	var pinned []models.Message
	for _, m := range msgs {
		if m.Pinned {
			pinned = append(pinned, m)
		}
	}
	return pinned, nil
}

func (c *Composer) queue() ([]models.Message, error) {
	entries, err := c.led.Queue()
	if err != nil {
		return nil, err
	}
	var out []models.Message
	for _, e := range entries {
		m, err := c.st.GetMessage(e.MessageID)
		if err != nil {
			// entry outlived its message; the sweeper reconciles these
			continue
		}
		info := e
		m.Report = &info
		out = append(out, m)
	}
	return out, nil
}
