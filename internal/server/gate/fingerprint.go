package gate

import (
	"net/http"
	"sort"
	"strings"
)

// fingerprintMarkers are matched against lower-cased header names.
var fingerprintMarkers = []string{"fingerprint", "hwid", "identifier"}

// ExtractFingerprint picks the device fingerprint out of request headers.
//
// Header names are visited in ascending order of their canonical form and
// every header whose name contains one of fingerprintMarkers and whose
// value is non-empty replaces the previous candidate, so the last match
// wins. Multiple values of one header are joined with ", ". Callers that
// send several conflicting identity headers get this deterministic choice
// rather than an error.
func ExtractFingerprint(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var fingerprint string
	for _, name := range names {
		if !isFingerprintHeader(name) {
			continue
		}
		if v := strings.Join(h[name], ", "); v != "" {
			fingerprint = v
		}
	}
	return fingerprint
}

func isFingerprintHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range fingerprintMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
