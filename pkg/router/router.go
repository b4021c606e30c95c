package router

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

// Router is a minimal HTTP router with exact and wildcard routes
// (a "*" path segment matches one segment; a trailing "*" matches the
// rest) plus a colored access log.
type Router struct {
	mux     *http.ServeMux
	routes  map[string]HandlerFunc // key = METHOD:PATTERN
	paths   map[string]bool        // registered patterns, for 405 vs 404
	ordered []string               // patterns in registration order; first match wins
}

func New() *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
	}
	r.mux.HandleFunc("/", r.dispatch)
	return r
}

// dispatch resolves every request: exact route, then wildcard routes,
// then 405/404, logging one access line per request.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(rec, req)
	} else if h := r.matchWildcard(req.Method, req.URL.Path); h != nil {
		h(rec, req)
	} else if r.paths[req.URL.Path] {
		http.Error(rec, "Method Not Allowed", http.StatusMethodNotAllowed)
	} else {
		http.Error(rec, "Not Found", http.StatusNotFound)
	}

	log.Printf("%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s",
		colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
		methodColor(req.Method), req.Method, colorReset,
		req.URL.Path,
		statusColor(rec.status), rec.status, colorReset,
		colorBlue, time.Since(start), colorReset,
	)
}

func (r *Router) matchWildcard(method, path string) HandlerFunc {
	for _, pattern := range r.ordered {
		if !strings.Contains(pattern, "*") {
			continue
		}
		if matchPattern(path, pattern) {
			if h, ok := r.routes[method+":"+pattern]; ok {
				return h
			}
		}
	}
	return nil
}

// matchPattern checks a request path against a registered pattern. A "*"
// segment matches exactly one path segment; a trailing "*" matches any
// remaining segments.
func matchPattern(path, pattern string) bool {
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	patternSegs := strings.Split(strings.Trim(pattern, "/"), "/")

	trailing := len(patternSegs) > 0 && patternSegs[len(patternSegs)-1] == "*"
	if trailing {
		if len(pathSegs) < len(patternSegs)-1 {
			return false
		}
	} else if len(pathSegs) != len(patternSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if seg == "*" {
			continue
		}
		if i >= len(pathSegs) || pathSegs[i] != seg {
			return false
		}
	}
	return true
}

func (r *Router) register(method, pattern string, handler HandlerFunc) {
	r.routes[method+":"+pattern] = handler
	if !r.paths[pattern] {
		r.paths[pattern] = true
		r.ordered = append(r.ordered, pattern)
	}
}

func (r *Router) GET(pattern string, handler HandlerFunc) {
	r.register(http.MethodGet, pattern, handler)
}
func (r *Router) POST(pattern string, handler HandlerFunc) {
	r.register(http.MethodPost, pattern, handler)
}
func (r *Router) PUT(pattern string, handler HandlerFunc) {
	r.register(http.MethodPut, pattern, handler)
}
func (r *Router) DELETE(pattern string, handler HandlerFunc) {
	r.register(http.MethodDelete, pattern, handler)
}

// Routes exposes the route table for testing.
func (r *Router) Routes() map[string]HandlerFunc { return r.routes }

// Start blocks serving HTTP on addr.
func (r *Router) Start(addr string) {
	log.Printf("🚀 Server started on %shttp://localhost%s%s", colorGreen, addr, colorReset)
	log.Fatal(http.ListenAndServe(addr, r.mux))
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func statusColor(code int) string {
	switch {
	case code < 300:
		return colorGreen
	case code < 400:
		return colorCyan
	case code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
