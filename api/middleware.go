package api

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TokenMiddleware checks the tokens for non-public URLs.  The configured
// token is a bcrypt hash of the pre-shared key and clients send the key in
// the X-Auth-Token header.  An empty token disables authentication, which is
// only meant for development.
func TokenMiddleware(token []byte, publicURLs map[string]string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicURLs[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}

		if len(token) == 0 {
			h.ServeHTTP(w, r)
			return
		}

		psk := r.Header.Get("X-Auth-Token")
		if err := bcrypt.CompareHashAndPassword(token, []byte(psk)); err != nil {
			log.Warnf("bad token for request %s %s: %s", r.Method, r.URL, err)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Forbidden"))
			return
		}

		h.ServeHTTP(w, r)
	})
}
