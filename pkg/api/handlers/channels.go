package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hangartalk/pkg/auth"
	"hangartalk/pkg/directory"
	"hangartalk/pkg/models"
	"hangartalk/pkg/utils"
	"hangartalk/pkg/validation"
)

// RegisterChannels registers the channel directory routes.
func RegisterChannels(r *mux.Router, d Deps) {
	r.HandleFunc("/channels", d.listChannels).Methods(http.MethodGet)
	r.HandleFunc("/channels", d.createChannel).Methods(http.MethodPost)
	r.HandleFunc("/channels/categories", d.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/channels/categories", d.createCategory).Methods(http.MethodPost)
	r.HandleFunc("/channels/{id}/messages", d.listChannelMessages).Methods(http.MethodGet)
	r.HandleFunc("/channels/{id}/pinned", d.listPinned).Methods(http.MethodGet)
	r.HandleFunc("/channels/{id}/read", d.markChannelRead).Methods(http.MethodPost)
}

// listChannels handles GET /channels. The viewer's role decides whether the
// moderation queue appears in the directory; the optional "active" query
// parameter requests which channel should be marked active. Exactly one
// channel in the response carries active=true when any channels exist.
func (d Deps) listChannels(w http.ResponseWriter, r *http.Request) {
	viewer, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	role := auth.MemberRoleFromRequest(r)
	requested := r.URL.Query().Get("active")

	chans, active, err := d.Directory.Resolve(viewer, role, requested)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Channels []models.Channel `json:"channels"`
		Active   string           `json:"active"`
	}{Channels: chans, Active: active})
}

// createChannel handles POST /channels. Requires the manage-channels
// capability.
func (d Deps) createChannel(w http.ResponseWriter, r *http.Request) {
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapManageChannels) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	var ch models.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateChannelName(ch.Name); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := d.Directory.AddChannel(ch)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, out)
}

// createCategory handles POST /channels/categories. Requires the
// manage-channels capability.
func (d Deps) createCategory(w http.ResponseWriter, r *http.Request) {
	role := auth.MemberRoleFromRequest(r)
	if !role.Can(models.CapManageChannels) {
		utils.JSONError(w, http.StatusForbidden, "insufficient role")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := d.Directory.AddCategory(body.Name); err != nil {
		if errors.Is(err, directory.ErrEmptyName) {
			utils.JSONError(w, http.StatusBadRequest, "category name is empty")
			return
		}
		writeStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// listCategories handles GET /channels/categories.
func (d Deps) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := d.Directory.Categories()
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Categories []string `json:"categories"`
	}{Categories: cats})
}

// listChannelMessages handles GET /channels/{id}/messages. The optional
// "threaded" query parameter returns the reply forest instead of the flat
// list. The moderation channel requires the moderate capability and returns
// the review queue.
func (d Deps) listChannelMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == models.ModerationChannelID {
		role := auth.MemberRoleFromRequest(r)
		if !role.Can(models.CapModerate) {
			utils.JSONError(w, http.StatusForbidden, "insufficient role")
			return
		}
	}
	if r.URL.Query().Get("threaded") != "" {
		forest, err := d.Composer.Threaded(id)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Channel string      `json:"channel"`
			Threads interface{} `json:"threads"`
		}{Channel: id, Threads: forest.Roots})
		return
	}
	msgs, err := d.Composer.Messages(id)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Channel  string           `json:"channel"`
		Messages []models.Message `json:"messages"`
	}{Channel: id, Messages: msgs})
}

// listPinned handles GET /channels/{id}/pinned.
func (d Deps) listPinned(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	msgs, err := d.Composer.Pinned(id)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Channel  string           `json:"channel"`
		Messages []models.Message `json:"messages"`
	}{Channel: id, Messages: msgs})
}

// markChannelRead handles POST /channels/{id}/read. Advances the viewer's
// read watermark to now; never moves it backwards.
func (d Deps) markChannelRead(w http.ResponseWriter, r *http.Request) {
	viewer, code, msg := auth.ResolveAuthorFromRequest(r, "")
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := d.Store.GetChannel(id); err != nil {
		writeStoreErr(w, err)
		return
	}
	if err := d.Store.MarkRead(viewer, id, time.Now().UTC().UnixNano()); err != nil {
		writeStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
