package middleware

import (
	"net/http"
	"strings"
)

// CORSPolicy lists what cross-origin callers may use. A "*" entry allows
// anything in that list.
type CORSPolicy struct {
	Origins []string
	Methods []string
	Headers []string
}

// AllowAll permits any origin, method and header.
var AllowAll = CORSPolicy{Origins: []string{"*"}, Methods: []string{"*"}, Headers: []string{"*"}}

func CORS(p CORSPolicy) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(p.Origins))
	for _, o := range p.Origins {
		originsSet[o] = true
	}
	allowAllOrigins := originsSet["*"]
	allowAllMethods := contains(p.Methods, "*")
	allowAllHeaders := contains(p.Headers, "*")

	methods := strings.Join(p.Methods, ", ")
	if allowAllMethods {
		methods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAllOrigins:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case originsSet[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				if allowAllHeaders {
					if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						w.Header().Set("Access-Control-Allow-Headers", req)
					}
				} else {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(p.Headers, ", "))
				}
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
