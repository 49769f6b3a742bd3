package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"hangartalk/pkg/models"
)

func send(t *testing.T, st *Store, channel, author, content string, ts int64) models.Message {
	t.Helper()
	m, err := st.SendMessage(models.Message{Channel: channel, Author: author, Content: content, TS: ts})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	return m
}

func TestSendAndListOrder(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	send(t, st, "general", "alice", "first", 100)
	send(t, st, "general", "bob", "second", 200)
	send(t, st, "general", "alice", "third", 300)

	msgs, err := st.ListChannelMessages("general")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Fatalf("position %d: expected %q got %q", i, want, msgs[i].Content)
		}
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	if _, err := st.SendMessage(models.Message{Channel: "general", Author: "a", Content: "   "}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestSendUnknownChannel(t *testing.T) {
	st := testStore(t, "")
	if _, err := st.SendMessage(models.Message{Channel: "ghost", Author: "a", Content: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListLimitKeepsMostRecent(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	for i := int64(1); i <= 5; i++ {
		send(t, st, "general", "a", "msg", i*100)
	}
	msgs, err := st.ListChannelMessages("general", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2, got %d", len(msgs))
	}
	if msgs[0].TS != 400 || msgs[1].TS != 500 {
		t.Fatalf("expected last two messages, got %d %d", msgs[0].TS, msgs[1].TS)
	}
}

func TestReplyToNameDenormalized(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	parent, err := st.SendMessage(models.Message{Channel: "general", Author: "alice", AuthorName: "Alice A", Content: "hello", TS: 100})
	if err != nil {
		t.Fatalf("send parent: %v", err)
	}
	reply, err := st.SendMessage(models.Message{Channel: "general", Author: "bob", Content: "hi", TS: 200, ReplyTo: parent.ID})
	if err != nil {
		t.Fatalf("send reply: %v", err)
	}
	if reply.ReplyToName != "Alice A" {
		t.Fatalf("expected denormalized parent name, got %q", reply.ReplyToName)
	}
	// unresolved parent keeps the reference without a name
	orphan, err := st.SendMessage(models.Message{Channel: "general", Author: "bob", Content: "hey", TS: 300, ReplyTo: "missing"})
	if err != nil {
		t.Fatalf("send orphan: %v", err)
	}
	if orphan.ReplyTo != "missing" || orphan.ReplyToName != "" {
		t.Fatalf("unexpected orphan reply fields: %+v", orphan)
	}
}

func TestEditAuthorOnly(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "original", 100)

	if _, err := st.EditMessage(m.ID, "bob", "hacked"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	got, err := st.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "original" {
		t.Fatalf("denied edit mutated content: %q", got.Content)
	}

	edited, err := st.EditMessage(m.ID, "alice", "updated")
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if edited.Content != "updated" || edited.EditedTS == 0 {
		t.Fatalf("unexpected edit result: %+v", edited)
	}
}

func TestEditRejectsEmptyContent(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "original", 100)
	if _, err := st.EditMessage(m.ID, "alice", "  "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestDeleteAuthorOnly(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)

	if err := st.DeleteMessage(m.ID, "bob", false); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if err := st.DeleteMessage(m.ID, "alice", false); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := st.GetMessage(m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted message to read as missing, got %v", err)
	}
	msgs, err := st.ListChannelMessages("general")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("deleted message still listed")
	}
	// double delete reads as missing
	if err := st.DeleteMessage(m.ID, "alice", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestForceDeleteBypassesAuthor(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)
	if err := st.DeleteMessage(m.ID, "moderator", true); err != nil {
		t.Fatalf("force delete failed: %v", err)
	}
	if _, err := st.GetMessage(m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing after force delete, got %v", err)
	}
}

func TestDeleteOrphanPolicyKeepsReplies(t *testing.T) {
	st := testStore(t, "orphan")
	mkChannel(t, st, "general")
	parent := send(t, st, "general", "alice", "root", 100)
	reply, err := st.SendMessage(models.Message{Channel: "general", Author: "bob", Content: "child", TS: 200, ReplyTo: parent.ID})
	if err != nil {
		t.Fatalf("send reply: %v", err)
	}
	if err := st.DeleteMessage(parent.ID, "alice", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := st.GetMessage(reply.ID)
	if err != nil {
		t.Fatalf("reply should survive orphan delete: %v", err)
	}
	if got.ReplyTo != parent.ID {
		t.Fatalf("reply lost its parent reference")
	}
}

func TestDeleteCascadePolicyRemovesSubtree(t *testing.T) {
	st := testStore(t, "cascade")
	mkChannel(t, st, "general")
	parent := send(t, st, "general", "alice", "root", 100)
	reply, err := st.SendMessage(models.Message{Channel: "general", Author: "bob", Content: "child", TS: 200, ReplyTo: parent.ID})
	if err != nil {
		t.Fatalf("send reply: %v", err)
	}
	nested, err := st.SendMessage(models.Message{Channel: "general", Author: "carol", Content: "grandchild", TS: 300, ReplyTo: reply.ID})
	if err != nil {
		t.Fatalf("send nested: %v", err)
	}
	sibling := send(t, st, "general", "dave", "unrelated", 400)

	if err := st.DeleteMessage(parent.ID, "alice", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, id := range []string{parent.ID, reply.ID, nested.ID} {
		if _, err := st.GetMessage(id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("message %s should be cascade deleted, got %v", id, err)
		}
	}
	if _, err := st.GetMessage(sibling.ID); err != nil {
		t.Fatalf("unrelated message should survive: %v", err)
	}
}

func TestToggleReactionRoundTrip(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)

	before, err := st.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	on, err := st.ToggleReaction(m.ID, "bob", "thumbs")
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if len(on.Reactions) != 1 || on.Reactions[0].Count != 1 || !on.ReactionBy("bob", "thumbs") {
		t.Fatalf("unexpected reactions after toggle on: %+v", on.Reactions)
	}

	off, err := st.ToggleReaction(m.ID, "bob", "thumbs")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if !reflect.DeepEqual(off.Reactions, before.Reactions) {
		t.Fatalf("toggle pair did not restore state: %+v vs %+v", off.Reactions, before.Reactions)
	}
}

func TestToggleReactionCountMatchesUsers(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)

	for _, u := range []string{"bob", "carol", "dave"} {
		if _, err := st.ToggleReaction(m.ID, u, "wave"); err != nil {
			t.Fatalf("toggle %s: %v", u, err)
		}
	}
	got, err := st.ToggleReaction(m.ID, "carol", "wave")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(got.Reactions) != 1 {
		t.Fatalf("expected one reaction entry, got %d", len(got.Reactions))
	}
	r := got.Reactions[0]
	if r.Count != len(r.Users) || r.Count != 2 {
		t.Fatalf("count/users mismatch: count=%d users=%v", r.Count, r.Users)
	}
	if got.ReactionBy("carol", "wave") {
		t.Fatalf("carol's vote should be removed")
	}
}

func TestTogglePin(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)

	pinned, err := st.TogglePin(m.ID)
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !pinned.Pinned {
		t.Fatalf("expected pinned")
	}
	unpinned, err := st.TogglePin(m.ID)
	if err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if unpinned.Pinned {
		t.Fatalf("expected unpinned")
	}
}

func TestDeleteClearsPin(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "hi", 100)
	if _, err := st.TogglePin(m.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := st.DeleteMessage(m.ID, "alice", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, _, err := st.getRecord(m.ID)
	if err != nil {
		t.Fatalf("getRecord: %v", err)
	}
	if rec.Pinned {
		t.Fatalf("tombstone kept its pin")
	}
}

func TestPurgeDeleted(t *testing.T) {
	st := testStore(t, "")
	mkChannel(t, st, "general")
	m := send(t, st, "general", "alice", "bye", 100)
	keep := send(t, st, "general", "alice", "stay", 200)
	if err := st.DeleteMessage(m.ID, "alice", false); err != nil {
		t.Fatalf("delete: %v", err)
	}

	cutoff := time.Now().UTC().Add(time.Hour).UnixNano()

	n, err := st.PurgeDeleted(cutoff, 0, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if n != 1 {
		t.Fatalf("dry run expected 1 victim, got %d", n)
	}
	// dry run must not remove anything
	if _, _, err := st.getRecord(m.ID); err != nil {
		t.Fatalf("dry run removed record: %v", err)
	}

	n, err = st.PurgeDeleted(cutoff, 0, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, _, err := st.getRecord(m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("tombstone should be gone, got %v", err)
	}
	if _, err := st.GetMessage(keep.ID); err != nil {
		t.Fatalf("live message should survive purge: %v", err)
	}
}
