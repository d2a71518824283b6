package service

import (
	"fmt"

	"github.com/mssola/useragent"
)

// DeviceSummary renders a human-readable device description from a raw
// user-agent string. Recorded in the structured log at login for operator
// forensics; never stored against the persona.
func DeviceSummary(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	os := ua.OS()
	if name == "" {
		name = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return fmt.Sprintf("%s on %s", name, os)
}
