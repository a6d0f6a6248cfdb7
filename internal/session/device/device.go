// Package device turns a User-Agent into the label and fingerprint recorded
// on sessions and audit events.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "unknown"

// Fingerprint hashes the coarse browser family, major version, OS and form
// factor. The client IP is left out; it changes too often to identify a device.
func Fingerprint(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()

	major, _, _ := strings.Cut(version, ".")
	formFactor := "desktop"
	if ua.Mobile() {
		formFactor = "mobile"
	}

	parts := []string{
		orUnknown(strings.ToLower(strings.TrimSpace(browser))),
		orUnknown(major),
		orUnknown(strings.ToLower(strings.TrimSpace(ua.OS()))),
		formFactor,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Label renders a short display name such as "Chrome on macOS".
func Label(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
