package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hangartalk/pkg/directory"
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/store"
	"hangartalk/pkg/view"
)

type fixture struct {
	st     *store.Store
	led    *ledger.Ledger
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir(), store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SaveChannel(models.Channel{ID: "general", Name: "General", CreatedTS: time.Now().UTC().UnixNano()}); err != nil {
		t.Fatalf("save channel: %v", err)
	}
	led := ledger.New(st)
	dir := directory.New(st, led, "general")
	return &fixture{
		st:     st,
		led:    led,
		router: New(Deps{Store: st, Ledger: led, Directory: dir, Composer: view.New(st, led)}),
	}
}

// do issues a request as a trusted backend caller acting for user with the
// given community role. An empty role leaves the header unset and resolves
// to student.
func (f *fixture) do(t *testing.T, method, path, user, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Role-Name", "backend")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func (f *fixture) send(t *testing.T, user, content, replyTo string) models.Message {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/messages", user, "", map[string]string{
		"channel": "general", "content": content, "reply_to": replyTo,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: status %d body %s", w.Code, w.Body.String())
	}
	return decode[models.Message](t, w)
}

func TestSendAndGetMessage(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "pattern work at 14", "")
	if m.ID == "" || m.Author != "alice" {
		t.Fatalf("unexpected message: %+v", m)
	}

	w := f.do(t, http.MethodGet, "/v1/messages/"+m.ID, "alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	got := decode[models.Message](t, w)
	if got.Content != "pattern work at 14" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
}

func TestSendRejectsBlankContent(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/messages", "alice", "", map[string]string{
		"channel": "general", "content": "   ",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSendRequiresAuthor(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/messages", "", "", map[string]string{
		"channel": "general", "content": "hi",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("backend without author should get 400, got %d", w.Code)
	}
}

func TestEditOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "solo at dawn", "")

	w := f.do(t, http.MethodPut, "/v1/messages/"+m.ID, "bob", "", map[string]string{"content": "hijacked"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-author edit should be 403, got %d", w.Code)
	}

	w = f.do(t, http.MethodPut, "/v1/messages/"+m.ID, "alice", "", map[string]string{"content": "solo at dusk"})
	if w.Code != http.StatusOK {
		t.Fatalf("author edit failed: %d %s", w.Code, w.Body.String())
	}
	if got := decode[models.Message](t, w); got.Content != "solo at dusk" || got.EditedTS == 0 {
		t.Fatalf("unexpected edited message: %+v", got)
	}
}

func TestDeleteOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "oops", "")

	if w := f.do(t, http.MethodDelete, "/v1/messages/"+m.ID, "bob", "", nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-author delete should be 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/v1/messages/"+m.ID, "alice", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("author delete failed: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/messages/"+m.ID, "alice", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted message should be 404, got %d", w.Code)
	}
}

func TestForceDeleteNeedsModerator(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "flagged", "")

	if w := f.do(t, http.MethodDelete, "/v1/messages/"+m.ID+"?force=1", "bob", "student", nil); w.Code != http.StatusForbidden {
		t.Fatalf("student force delete should be 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/v1/messages/"+m.ID+"?force=1", "bob", "admin", nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin force delete failed: %d", w.Code)
	}
}

func TestTogglePinRoleGate(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "METAR decode cheat sheet", "")

	if w := f.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/pin", "bob", "instructor", nil); w.Code != http.StatusForbidden {
		t.Fatalf("instructor pin should be 403, got %d", w.Code)
	}
	w := f.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/pin", "bob", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin pin failed: %d", w.Code)
	}
	if got := decode[models.Message](t, w); !got.Pinned {
		t.Fatalf("message should be pinned")
	}

	pinned := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, f.do(t, http.MethodGet, "/v1/channels/general/pinned", "alice", "", nil))
	if len(pinned.Messages) != 1 || pinned.Messages[0].ID != m.ID {
		t.Fatalf("pinned view wrong: %+v", pinned.Messages)
	}
}

func TestReactionToggle(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "checkride passed!", "")

	w := f.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/reactions", "bob", "", map[string]string{"emoji": "🎉"})
	if w.Code != http.StatusOK {
		t.Fatalf("react failed: %d %s", w.Code, w.Body.String())
	}
	got := decode[models.Message](t, w)
	if len(got.Reactions) != 1 || got.Reactions[0].Count != 1 {
		t.Fatalf("unexpected reactions: %+v", got.Reactions)
	}

	w = f.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/reactions", "bob", "", map[string]string{"emoji": "🎉"})
	got = decode[models.Message](t, w)
	if len(got.Reactions) != 0 {
		t.Fatalf("second toggle should clear the reaction: %+v", got.Reactions)
	}

	if w := f.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/reactions", "bob", "", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing emoji should be 400, got %d", w.Code)
	}
}

func TestModerationFlow(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "buy my prop wax", "")

	w := f.do(t, http.MethodPost, "/v1/moderation/reports", "bob", "student", map[string]string{
		"message_id": m.ID, "reason": "spam",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("report failed: %d %s", w.Code, w.Body.String())
	}
	info := decode[models.ReportInfo](t, w)
	if info.Count != 1 {
		t.Fatalf("unexpected report info: %+v", info)
	}

	// students cannot see the queue
	if w := f.do(t, http.MethodGet, "/v1/moderation/queue", "bob", "student", nil); w.Code != http.StatusForbidden {
		t.Fatalf("student queue access should be 403, got %d", w.Code)
	}

	q := decode[struct {
		Queue []models.Message `json:"queue"`
	}](t, f.do(t, http.MethodGet, "/v1/moderation/queue", "cfi-admin", "admin", nil))
	if len(q.Queue) != 1 || q.Queue[0].ID != m.ID || q.Queue[0].Report == nil {
		t.Fatalf("unexpected queue: %+v", q.Queue)
	}

	// approve keeps the message and clears the entry
	if w := f.do(t, http.MethodPost, "/v1/moderation/reports/"+m.ID+"/approve", "cfi-admin", "admin", nil); w.Code != http.StatusNoContent {
		t.Fatalf("approve failed: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/messages/"+m.ID, "bob", "", nil); w.Code != http.StatusOK {
		t.Fatalf("approved message should survive, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/moderation/reports/"+m.ID+"/approve", "cfi-admin", "admin", nil); w.Code != http.StatusNotFound {
		t.Fatalf("double approve should be 404, got %d", w.Code)
	}
}

func TestRejectRemovesMessage(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "abusive", "")
	if w := f.do(t, http.MethodPost, "/v1/moderation/reports", "bob", "", map[string]string{
		"message_id": m.ID, "reason": "abuse",
	}); w.Code != http.StatusCreated {
		t.Fatalf("report failed: %d", w.Code)
	}

	if w := f.do(t, http.MethodPost, "/v1/moderation/reports/"+m.ID+"/reject", "mod", "student", nil); w.Code != http.StatusForbidden {
		t.Fatalf("student reject should be 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/moderation/reports/"+m.ID+"/reject", "mod", "admin", nil); w.Code != http.StatusNoContent {
		t.Fatalf("reject failed: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/messages/"+m.ID, "bob", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("rejected message should be gone, got %d", w.Code)
	}
}

func TestChannelDirectory(t *testing.T) {
	f := newFixture(t)

	type dirResp struct {
		Channels []models.Channel `json:"channels"`
		Active   string           `json:"active"`
	}

	// students never see the moderation channel
	resp := decode[dirResp](t, f.do(t, http.MethodGet, "/v1/channels", "alice", "student", nil))
	if len(resp.Channels) != 1 || resp.Active != "general" {
		t.Fatalf("unexpected directory: %+v", resp)
	}

	// admins get the queue channel appended
	resp = decode[dirResp](t, f.do(t, http.MethodGet, "/v1/channels", "boss", "admin", nil))
	if len(resp.Channels) != 2 {
		t.Fatalf("admin should see moderation channel: %+v", resp.Channels)
	}
	last := resp.Channels[len(resp.Channels)-1]
	if last.ID != models.ModerationChannelID || !last.Synthetic {
		t.Fatalf("unexpected trailing channel: %+v", last)
	}

	// the active query parameter wins
	resp = decode[dirResp](t, f.do(t, http.MethodGet, "/v1/channels?active="+models.ModerationChannelID, "boss", "admin", nil))
	if resp.Active != models.ModerationChannelID {
		t.Fatalf("requested active not honored: %s", resp.Active)
	}
}

func TestCreateChannelRoleGate(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{"name": "Weather Briefings", "category": "Training"}

	if w := f.do(t, http.MethodPost, "/v1/channels", "alice", "student", body); w.Code != http.StatusForbidden {
		t.Fatalf("student create channel should be 403, got %d", w.Code)
	}
	w := f.do(t, http.MethodPost, "/v1/channels", "cfi-jane", "instructor", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("instructor create channel failed: %d %s", w.Code, w.Body.String())
	}
	ch := decode[models.Channel](t, w)
	if ch.ID == "" || ch.Slug == "" || ch.Category != "Training" {
		t.Fatalf("unexpected channel: %+v", ch)
	}
}

func TestModerationChannelMessagesGate(t *testing.T) {
	f := newFixture(t)
	m := f.send(t, "alice", "reported", "")
	if w := f.do(t, http.MethodPost, "/v1/moderation/reports", "bob", "", map[string]string{
		"message_id": m.ID, "reason": "spam",
	}); w.Code != http.StatusCreated {
		t.Fatalf("report failed: %d", w.Code)
	}

	path := "/v1/channels/" + models.ModerationChannelID + "/messages"
	if w := f.do(t, http.MethodGet, path, "bob", "student", nil); w.Code != http.StatusForbidden {
		t.Fatalf("student moderation read should be 403, got %d", w.Code)
	}
	resp := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, f.do(t, http.MethodGet, path, "boss", "admin", nil))
	if len(resp.Messages) != 1 || resp.Messages[0].Report == nil {
		t.Fatalf("unexpected moderation view: %+v", resp.Messages)
	}
}

func TestThreadedChannelMessages(t *testing.T) {
	f := newFixture(t)
	root := f.send(t, "alice", "anyone up for the cross country Saturday?", "")
	f.send(t, "bob", "count me in", root.ID)

	w := f.do(t, http.MethodGet, "/v1/channels/general/messages?threaded=1", "alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("threaded list failed: %d", w.Code)
	}
	resp := decode[struct {
		Threads []struct {
			Message models.Message   `json:"message"`
			Replies []models.Message `json:"replies"`
		} `json:"threads"`
	}](t, w)
	if len(resp.Threads) != 1 {
		t.Fatalf("expected one thread, got %d", len(resp.Threads))
	}
	th := resp.Threads[0]
	if th.Message.ID != root.ID || len(th.Replies) != 1 || th.Replies[0].Author != "bob" {
		t.Fatalf("unexpected thread: %+v", th)
	}
}

func TestMarkChannelRead(t *testing.T) {
	f := newFixture(t)
	f.send(t, "bob", "unread this", "")

	type dirResp struct {
		Channels []models.Channel `json:"channels"`
	}
	resp := decode[dirResp](t, f.do(t, http.MethodGet, "/v1/channels", "alice", "", nil))
	if resp.Channels[0].Unread != 1 {
		t.Fatalf("expected 1 unread, got %d", resp.Channels[0].Unread)
	}

	if w := f.do(t, http.MethodPost, "/v1/channels/general/read", "alice", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("mark read failed: %d", w.Code)
	}
	resp = decode[dirResp](t, f.do(t, http.MethodGet, "/v1/channels", "alice", "", nil))
	if resp.Channels[0].Unread != 0 {
		t.Fatalf("expected 0 unread after mark, got %d", resp.Channels[0].Unread)
	}

	if w := f.do(t, http.MethodPost, "/v1/channels/nope/read", "alice", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown channel read should be 404, got %d", w.Code)
	}
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.send(t, "alice", fmt.Sprintf("m%d", i), "")
	}

	w := f.do(t, http.MethodGet, "/v1/admin/stats", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats failed: %d %s", w.Code, w.Body.String())
	}
	stats := decode[map[string]int](t, w)
	if stats["channels"] != 1 || stats["messages"] != 3 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestCreateCategoryRoleGate(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{"name": "Training"}

	if w := f.do(t, http.MethodPost, "/v1/channels/categories", "alice", "student", body); w.Code != http.StatusForbidden {
		t.Fatalf("student create category should be 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/channels/categories", "cfi-jane", "instructor", body); w.Code != http.StatusCreated {
		t.Fatalf("instructor create category failed: %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/channels/categories", "cfi-jane", "instructor", map[string]string{"name": " "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank category should be 400, got %d", w.Code)
	}

	cats := decode[struct {
		Categories []string `json:"categories"`
	}](t, f.do(t, http.MethodGet, "/v1/channels/categories", "alice", "", nil))
	found := false
	for _, c := range cats.Categories {
		if c == "Training" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Training missing from %v", cats.Categories)
	}
}
