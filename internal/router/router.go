package router

import (
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router is an http.ServeMux with middleware chains. Groups share the mux
// and the route table of their parent.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *[]string
}

// New creates a Router. middleware runs on every route, outermost first.
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: new([]string),
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route. GET patterns also match HEAD.
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Handle registers handler for method and pattern behind the group's chain
// and then middleware.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	route := method + " " + pattern
	r.mux.Handle(route, r.wrap(handler, middleware))
	*r.routes = append(*r.routes, route)
}

// NotFound registers the handler for requests no route matches. It runs
// behind the global middleware, so unmatched requests are logged and counted.
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.Handle("/", r.wrap(handler, nil))
}

// Routes returns the registered "METHOD pattern" strings in registration order.
func (r *Router) Routes() []string {
	return slices.Clone(*r.routes)
}

// Group returns a router that adds middleware after the current chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	h := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	for i := len(r.chain) - 1; i >= 0; i-- {
		h = r.chain[i](h)
	}
	return h
}
