package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the write paths; exported at /metrics via promhttp.
var (
	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_messages_sent_total",
		Help: "Messages appended to the store.",
	})
	messagesEdited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_messages_edited_total",
		Help: "Successful author edits.",
	})
	messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_messages_deleted_total",
		Help: "Messages soft-deleted, including cascades and moderation rejects.",
	})
	pinsToggled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_pins_toggled_total",
		Help: "Pin/unpin operations.",
	})
	reactionsToggled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_reactions_toggled_total",
		Help: "Reaction toggle operations.",
	})
)
