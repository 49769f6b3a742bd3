package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/store"
)

// ErrEmptyReason rejects blank report reasons without mutating state.
var ErrEmptyReason = errors.New("empty report reason")

const keyPrefix = "report:msg:"

// Ledger tracks messages under moderation review, independent of channel
// context so entries survive channel switches and restarts. Entries are
// persisted in the store under their own key namespace; the ledger never
// touches message records except on Reject.
type Ledger struct {
	st *store.Store
}

// New returns a ledger persisting through st.
func New(st *store.Store) *Ledger {
	return &Ledger{st: st}
}

// Report files reason against a message. Reasons are deduplicated while the
// count increments on every call, so repeated identical reasons raise the
// count but not the reason list. Reporting a missing message is an error.
func (l *Ledger) Report(msgID, reporter, reason string) (models.ReportInfo, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ReportInfo{}, ErrEmptyReason
	}
	if _, err := l.st.GetMessage(msgID); err != nil {
		return models.ReportInfo{}, err
	}
	now := time.Now().UTC().UnixNano()
	info, err := l.Get(msgID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return models.ReportInfo{}, err
		}
		info = models.ReportInfo{MessageID: msgID, FirstTS: now}
	}
	info.Count++
	info.LastTS = now
	if !contains(info.Reasons, reason) {
		info.Reasons = append(info.Reasons, reason)
	}
	if reporter != "" && !contains(info.Reporters, reporter) {
		info.Reporters = append(info.Reporters, reporter)
	}
	b, err := json.Marshal(info)
	if err != nil {
		return models.ReportInfo{}, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := l.st.SaveKey(keyPrefix+msgID, b); err != nil {
		return models.ReportInfo{}, err
	}
	reportsFiled.Inc()
	logger.AuditEvent("message_reported", "msg_id", msgID, "reporter", reporter, "count", info.Count)
	return info, nil
}

// Get returns the ledger entry for a message id.
func (l *Ledger) Get(msgID string) (models.ReportInfo, error) {
	v, err := l.st.GetKey(keyPrefix + msgID)
	if err != nil {
		return models.ReportInfo{}, err
	}
	var info models.ReportInfo
	if err := json.Unmarshal([]byte(v), &info); err != nil {
		return models.ReportInfo{}, fmt.Errorf("invalid report entry: %w", err)
	}
	return info, nil
}

// Approve clears the entry; the message stays visible in its channel.
func (l *Ledger) Approve(msgID, moderator string) error {
	if _, err := l.Get(msgID); err != nil {
		return err
	}
	if err := l.st.DeleteKey(keyPrefix + msgID); err != nil {
		return err
	}
	reportsApproved.Inc()
	logger.AuditEvent("report_approved", "msg_id", msgID, "moderator", moderator)
	return nil
}

// Reject clears the entry and deletes the underlying message. The delete
// only happens when the entry existed, so a double reject cannot remove an
// unrelated message.
func (l *Ledger) Reject(msgID, moderator string) error {
	if _, err := l.Get(msgID); err != nil {
		return err
	}
	if err := l.st.DeleteKey(keyPrefix + msgID); err != nil {
		return err
	}
	if err := l.st.DeleteMessage(msgID, moderator, true); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	reportsRejected.Inc()
	logger.AuditEvent("report_rejected", "msg_id", msgID, "moderator", moderator)
	return nil
}

// Queue returns all entries sorted by report count descending. Ties keep
// insertion (key) order.
func (l *Ledger) Queue() ([]models.ReportInfo, error) {
	keys, err := l.st.ListKeys(keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReportInfo, 0, len(keys))
	for _, k := range keys {
		v, err := l.st.GetKey(k)
		if err != nil {
			continue
		}
		var info models.ReportInfo
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			logger.Warn("skip_invalid_report", "key", k, "error", err)
			continue
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Size returns the number of open entries; used for the moderation
// channel's unread badge.
func (l *Ledger) Size() int {
	keys, err := l.st.ListKeys(keyPrefix)
	if err != nil {
		return 0
	}
	return len(keys)
}

// Sweep drops entries whose message no longer exists (purged or otherwise
// gone) and returns how many were removed. Called by the sweeper.
func (l *Ledger) Sweep() (int, error) {
	keys, err := l.st.ListKeys(keyPrefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		msgID := strings.TrimPrefix(k, keyPrefix)
		if _, err := l.st.GetMessage(msgID); errors.Is(err, store.ErrNotFound) {
			if err := l.st.DeleteKey(k); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
