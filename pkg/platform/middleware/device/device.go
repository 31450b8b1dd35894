// Package device derives a human-readable device label from a User-Agent.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Label renders ua as "Browser on OS", e.g. "Firefox on Linux". Parts that
// cannot be detected are dropped; an empty or unparseable ua yields "".
func Label(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		browser, _ := parsed.Browser()
		if browser == "" {
			return "Bot"
		}
		return browser + " (bot)"
	}

	browser, _ := parsed.Browser()
	os := parsed.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return ""
	}
}
