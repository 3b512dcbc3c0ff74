package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MuxRouter implements [Router] over [mux.Router].
type MuxRouter struct {
	mux *mux.Router
}

func NewRouter() *MuxRouter {
	return &MuxRouter{mux: mux.NewRouter()}
}

// Use adds middleware, applied in the order added.
func (r *MuxRouter) Use(middleware ...Middleware) {
	for _, m := range middleware {
		r.mux.Use(mux.MiddlewareFunc(m))
	}
}

// Handle registers handler for method and path. Path may contain {name} variables.
func (r *MuxRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, handler).Methods(method)
}

// Handler registers every route of handler for all methods.
func (r *MuxRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

func (r *MuxRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Vars returns the path variables of req.
func Vars(req *http.Request) map[string]string {
	return mux.Vars(req)
}
