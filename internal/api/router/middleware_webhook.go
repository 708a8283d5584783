package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const webhookTokenHeader = "X-Webhook-Token"

// requireWebhookToken checks the shared secret the call provider sends on
// status callbacks.
func requireWebhookToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(webhookTokenHeader))
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				http.Error(w, "invalid webhook token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
