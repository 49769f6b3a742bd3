package api

import (
	"github.com/gorilla/mux"

	"hangartalk/pkg/api/handlers"
	"hangartalk/pkg/directory"
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/store"
	"hangartalk/pkg/view"
)

// Deps carries the wired subsystems handlers operate on. The router never
// reaches for globals so tests can stand up isolated instances.
type Deps struct {
	Store     *store.Store
	Ledger    *ledger.Ledger
	Directory *directory.Directory
	Composer  *view.Composer
}

// New builds the versioned API router.
func New(d Deps) *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	hd := handlers.Deps{
		Store:     d.Store,
		Ledger:    d.Ledger,
		Directory: d.Directory,
		Composer:  d.Composer,
	}
	handlers.RegisterChannels(v1, hd)
	handlers.RegisterMessages(v1, hd)
	handlers.RegisterModeration(v1, hd)
	handlers.RegisterSigning(v1)

	admin := v1.PathPrefix("/admin").Subrouter()
	handlers.RegisterAdmin(admin, hd)

	return r
}
