package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// describePlatform renders a short "<browser> on <platform>" label for audit
// records from a User-Agent header.
func describePlatform(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	platform := ua.Platform()
	if ua.Mobile() && platform == "" {
		platform = "mobile"
	}
	label := strings.TrimSpace(browser + " on " + platform)
	label = strings.TrimSuffix(label, " on")
	label = strings.TrimPrefix(label, "on ")
	if label == "" || label == "on" {
		return "unknown"
	}
	return label
}
