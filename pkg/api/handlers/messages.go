package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hangartalk/pkg/auth"
	"hangartalk/pkg/models"
	"hangartalk/pkg/telemetry"
	"hangartalk/pkg/utils"
	"hangartalk/pkg/validation"
)

// RegisterMessages registers message lifecycle routes.
func RegisterMessages(r *mux.Router, d Deps) {
	r.HandleFunc("/messages", d.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", d.getMessage).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", d.editMessage).Methods(http.MethodPut)
	r.HandleFunc("/messages/{id}", d.deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/messages/{id}/pin", d.togglePin).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/reactions", d.toggleReaction).Methods(http.MethodPost)
}

// sendMessage handles POST /messages. The author comes from the verified
// identity, never from the body. Replies reference their parent through
// reply_to; an unknown parent is stored as sent and rendered as a root.
func (d Deps) sendMessage(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "send_message")

	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	author, code, msg := auth.ResolveAuthorFromRequest(r, m.Author)
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	m.Author = author

	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapPost) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	if err := validation.ValidateContent(m.Content); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	span := telemetry.StartSpan(r.Context(), "store.send_message")
	out, err := d.Store.SendMessage(m)
	span()
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, out)
}

// getMessage handles GET /messages/{id}. Deleted messages read as missing.
func (d Deps) getMessage(w http.ResponseWriter, r *http.Request) {
	m, err := d.Store.GetMessage(mux.Vars(r)["id"])
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// editMessage handles PUT /messages/{id}. Only the author may edit; anyone
// else gets a 403.
func (d Deps) editMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	actor, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	if err := validation.ValidateContent(body.Content); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := d.Store.EditMessage(mux.Vars(r)["id"], actor, body.Content)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// deleteMessage handles DELETE /messages/{id}. Authors delete their own
// messages; moderators may force-delete anyone's.
func (d Deps) deleteMessage(w http.ResponseWriter, r *http.Request) {
	actor, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	force := false
	if r.URL.Query().Get("force") != "" {
		role := auth.MemberRoleFromRequest(r)
		if !role.Can(models.CapModerate) {
			utils.JSONError(w, http.StatusForbidden, "insufficient role")
			return
		}
		force = true
	}
	if err := d.Store.DeleteMessage(mux.Vars(r)["id"], actor, force); err != nil {
		writeStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// togglePin handles POST /messages/{id}/pin. Pinning is a moderation
// surface: instructors and up.
func (d Deps) togglePin(w http.ResponseWriter, r *http.Request) {
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapModerate) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	m, err := d.Store.TogglePin(mux.Vars(r)["id"])
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// toggleReaction handles POST /messages/{id}/reactions. A second identical
// reaction from the same user removes the first.
func (d Deps) toggleReaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Emoji == "" {
		utils.JSONError(w, http.StatusBadRequest, "emoji required")
		return
	}
	user, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	m, err := d.Store.ToggleReaction(mux.Vars(r)["id"], user, body.Emoji)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}
