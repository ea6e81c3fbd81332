package apiclient

import (
	"net/http"
	"strings"
)

// expiryPhrases are matched case-insensitively against the server message.
// The list is closed; nothing else is inferred.
var expiryPhrases = []string{
	"token expired",
	"token invalid",
	"unauthorized",
	"jwt expired",
	"session expired",
	"token has expired",
	"authentication failed",
}

// SessionExpired classifies a non-2xx response. Any 401 is an expiry;
// otherwise the message decides.
func SessionExpired(status int, message string) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	if message == "" {
		return false
	}

	msg := strings.ToLower(message)
	for _, phrase := range expiryPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
