package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/utils"
)

// RegisterAdmin registers admin-only routes onto the admin subrouter.
func RegisterAdmin(r *mux.Router, d Deps) {
	r.HandleFunc("/health", d.adminHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", d.adminStats).Methods(http.MethodGet)
	r.HandleFunc("/keys", d.adminListKeys).Methods(http.MethodGet)
	r.HandleFunc("/keys/{key}", d.adminGetKey).Methods(http.MethodGet)
	r.HandleFunc("/sweep", d.adminSweep).Methods(http.MethodPost)
	logger.Info("admin_routes_registered")
}

func (d Deps) adminHealth(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"hangartalk"}`))
}

func (d Deps) adminStats(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	chans, _ := d.Store.ListChannels()
	var msgCount int64
	for _, ch := range chans {
		msgs, err := d.Store.ListChannelMessages(ch.ID)
		if err != nil {
			continue
		}
		msgCount += int64(len(msgs))
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Channels int   `json:"channels"`
		Messages int64 `json:"messages"`
		Reports  int   `json:"reports"`
	}{Channels: len(chans), Messages: msgCount, Reports: d.Ledger.Size()})
}

// adminListKeys lists keys in the underlying store. Optional query param
// `prefix` can be provided to limit keys by prefix.
func (d Deps) adminListKeys(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	keys, err := d.Store.ListKeys(r.URL.Query().Get("prefix"))
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Keys []string `json:"keys"`
	}{Keys: keys})
}

// adminGetKey returns the raw value for a given key. The key path variable
// is URL-unescaped before lookup.
func (d Deps) adminGetKey(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	keyEnc, ok := mux.Vars(r)["key"]
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "missing key")
		return
	}
	// URL path variables are not automatically unescaped by gorilla/mux,
	// so use PathUnescape to recover the original key string.
	key, err := url.PathUnescape(keyEnc)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid key encoding")
		return
	}
	v, err := d.Store.GetKey(key)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte(v))
}

// adminSweep triggers an immediate purge of old tombstones and stale
// ledger entries. Accepts optional "grace" (duration) and "dry_run" query
// params.
func (d Deps) adminSweep(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	grace := 0 * time.Second
	if g := r.URL.Query().Get("grace"); g != "" {
		parsed, err := time.ParseDuration(g)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid grace duration")
			return
		}
		grace = parsed
	}
	dryRun := r.URL.Query().Get("dry_run") != ""
	cutoff := time.Now().UTC().Add(-grace).UnixNano()
	purged, err := d.Store.PurgeDeleted(cutoff, 0, dryRun)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	cleared, err := d.Ledger.Sweep()
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	logger.AuditEvent("admin_sweep", "purged", purged, "ledger_cleared", cleared, "dry_run", dryRun)
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Purged int  `json:"purged"`
		Ledger int  `json:"ledger_cleared"`
		DryRun bool `json:"dry_run"`
	}{Purged: purged, Ledger: cleared, DryRun: dryRun})
}
