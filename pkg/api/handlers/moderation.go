package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hangartalk/pkg/auth"
	"hangartalk/pkg/models"
	"hangartalk/pkg/utils"
	"hangartalk/pkg/validation"
)

// RegisterModeration registers report filing and review routes.
func RegisterModeration(r *mux.Router, d Deps) {
	r.HandleFunc("/moderation/reports", d.fileReport).Methods(http.MethodPost)
	r.HandleFunc("/moderation/queue", d.listQueue).Methods(http.MethodGet)
	r.HandleFunc("/moderation/reports/{id}/approve", d.approveReport).Methods(http.MethodPost)
	r.HandleFunc("/moderation/reports/{id}/reject", d.rejectReport).Methods(http.MethodPost)
}

// fileReport handles POST /moderation/reports. Any member may report a
// message. Repeat reports raise the count; duplicate reasons are folded.
func (d Deps) fileReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MessageID string `json:"message_id"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	reporter, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	if err := validation.ValidateReason(body.Reason); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := d.Ledger.Report(body.MessageID, reporter, body.Reason)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, info)
}

// listQueue handles GET /moderation/queue. Moderators only. Reported
// messages come back most-reported first, each annotated with its ledger
// entry.
func (d Deps) listQueue(w http.ResponseWriter, r *http.Request) {
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapModerate) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	msgs, err := d.Composer.Messages(models.ModerationChannelID)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Queue []models.Message `json:"queue"`
	}{Queue: msgs})
}

// approveReport handles POST /moderation/reports/{id}/approve. The message
// stands; only the ledger entry is cleared.
func (d Deps) approveReport(w http.ResponseWriter, r *http.Request) {
	moderator, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapModerate) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	if err := d.Ledger.Approve(mux.Vars(r)["id"], moderator); err != nil {
		writeStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rejectReport handles POST /moderation/reports/{id}/reject. Clears the
// ledger entry and removes the offending message.
func (d Deps) rejectReport(w http.ResponseWriter, r *http.Request) {
	moderator, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapModerate) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	if err := d.Ledger.Reject(mux.Vars(r)["id"], moderator); err != nil {
		writeStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
