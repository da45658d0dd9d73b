package auth

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent condenses a raw User-Agent header into a short display label
// ("Chrome on Mac OS X") stored with the session for operator review.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown Device"
	}
}
