// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  Form
// submissions record the summary it produces as part of their source
// metadata.
package ua

import (
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info carries the UA attributes stored with a submission.
//
// Example (Chrome on macOS):
//
//	Browser   "Chrome"
//	Version   "125.0.6422"
//	OS        "MacOSX"
//	Device    "Desktop"
//	IsBot     false
//
// Device is one of "Desktop", "Mobile", "Tablet", or "Other".
type Info struct {
	Browser string `json:"browser,omitempty"`
	Version string `json:"browser_version,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device"`
	IsBot   bool   `json:"is_bot"`
}

// Parse converts a raw header into an Info.  An empty header yields
// Device "Other" and nothing else.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{Device: "Other"}
	}
	u := surfer.Parse(raw)

	info := Info{
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: versionString(u.Browser.Version),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
	}
	if info.Browser == "Unknown" {
		info.Browser = ""
	}
	if info.OS == "Unknown" {
		info.OS = ""
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// versionString renders a version in dotted form while trimming trailing
// zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionString(v surfer.Version) string {
	parts := []int{v.Major, v.Minor, v.Patch}
	for len(parts) > 0 && parts[len(parts)-1] == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, ".")
}
