// Package util provides utility functions shared by the registries, adapters and servers.
//
//revive:disable-next-line:var-naming
package util

import (
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// CVSSVersion returns "2.0", "3.0", "3.1" or "4.0" for a parsable vector, "" otherwise.
func CVSSVersion(vectorStr string) string {
	vectorStr = strings.TrimSpace(vectorStr)
	switch {
	case strings.HasPrefix(vectorStr, "CVSS:4.0/"):
		if _, err := gocvss40.ParseVector(vectorStr); err == nil {
			return "4.0"
		}
	case strings.HasPrefix(vectorStr, "CVSS:3.1/"):
		if _, err := gocvss31.ParseVector(vectorStr); err == nil {
			return "3.1"
		}
	case strings.HasPrefix(vectorStr, "CVSS:3.0/"):
		if _, err := gocvss30.ParseVector(vectorStr); err == nil {
			return "3.0"
		}
	case vectorStr != "":
		if _, err := gocvss20.ParseVector(strings.TrimPrefix(vectorStr, "CVSS:2.0/")); err == nil {
			return "2.0"
		}
	}
	return ""
}

// CalculateCVSSScore calculates the CVSS base score from a vector string
func CalculateCVSSScore(vectorStr string) float64 {
	vectorStr = strings.TrimSpace(vectorStr)
	switch CVSSVersion(vectorStr) {
	case "4.0":
		if cvss40, err := gocvss40.ParseVector(vectorStr); err == nil {
			return cvss40.Score()
		}
	case "3.1":
		if cvss31, err := gocvss31.ParseVector(vectorStr); err == nil {
			return cvss31.BaseScore()
		}
	case "3.0":
		if cvss30, err := gocvss30.ParseVector(vectorStr); err == nil {
			return cvss30.BaseScore()
		}
	case "2.0":
		if cvss20, err := gocvss20.ParseVector(strings.TrimPrefix(vectorStr, "CVSS:2.0/")); err == nil {
			return cvss20.BaseScore()
		}
	}
	return 0
}

// GetSeverityRating returns the severity rating for a given CVSS score
func GetSeverityRating(score float64) string {
	switch {
	case score == 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// GetSeverityScore returns the lowest CVSS base score threshold for a given severity rating.
func GetSeverityScore(severity string) float64 {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "LOW":
		return 0.1
	case "MEDIUM":
		return 4.0
	case "HIGH":
		return 7.0
	case "CRITICAL":
		return 9.0
	default:
		return 0.0
	}
}
