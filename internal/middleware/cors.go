package middleware

import (
	"net/http"
	"strings"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight.
const corsMaxAge = "86400"

type corsPolicy struct {
	origins  map[string]bool
	wildcard bool
	methods  string
	headers  string
}

// CORS answers preflight requests with 204 and adds the CORS headers to
// every response. With "*" configured any origin is echoed back without
// credentials; an explicitly listed origin is also allowed credentials.
func CORS(allowedOrigins, allowedMethods, allowedHeaders []string) Middleware {
	p := corsPolicy{
		origins: make(map[string]bool, len(allowedOrigins)),
		methods: strings.Join(allowedMethods, ", "),
		headers: strings.Join(allowedHeaders, ", "),
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			p.wildcard = true
			continue
		}
		p.origins[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p.apply(w.Header(), r.Header.Get("Origin"))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p corsPolicy) apply(h http.Header, origin string) {
	switch {
	case p.origins[origin]:
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	case p.wildcard && origin != "":
		h.Set("Access-Control-Allow-Origin", origin)
	}

	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	h.Set("Access-Control-Max-Age", corsMaxAge)
}
