// Package validation provides input checks shared by the configuration
// layer, the HTTP client and the live-reload websocket.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateOrigin validates a websocket Origin header against the allowed
// origins. Entries may be full origins ("http://localhost:8080") or bare
// hosts ("localhost:8080").
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if strings.EqualFold(origin, allowed) || strings.EqualFold(originURL.Host, allowed) {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
