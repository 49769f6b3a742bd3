package handlers

import (
	"errors"
	"net/http"

	"hangartalk/pkg/directory"
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/store"
	"hangartalk/pkg/utils"
	"hangartalk/pkg/view"
)

// Deps is the handler-side view of the wired subsystems.
type Deps struct {
	Store     *store.Store
	Ledger    *ledger.Ledger
	Directory *directory.Directory
	Composer  *view.Composer
}

// writeStoreErr maps domain errors onto HTTP statuses. Authorization misses
// surface as 403 so misbehaving clients are visible rather than silently
// ignored.
func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrNotAuthor):
		utils.JSONError(w, http.StatusForbidden, "not the author")
	case errors.Is(err, store.ErrEmptyContent):
		utils.JSONError(w, http.StatusBadRequest, "content is empty")
	case errors.Is(err, ledger.ErrEmptyReason):
		utils.JSONError(w, http.StatusBadRequest, "reason is empty")
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// isAdmin checks if the request is from an admin or backend key.
func isAdmin(r *http.Request) bool {
	role := r.Header.Get("X-Role-Name")
	return role == "admin" || role == "backend"
}
