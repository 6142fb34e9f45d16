package version

import (
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

var (
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
	dotRuns    = regexp.MustCompile(`\.{2,}`)

	zeroVersion = goversion.Must(goversion.NewVersion("0.0.0"))
)

// Parse turns a version string into a comparable version and never fails.
// Strings go-version rejects are reduced to their digits and dots, anything
// still unparsable is treated as 0.0.0.
// A pre-release suffix is kept when go-version understands it, so 1.2.0-beta
// sorts before 1.2.0.
func Parse(s string) *goversion.Version {
	s = strings.TrimSpace(s)
	if v, err := goversion.NewVersion(s); err == nil {
		return v
	}

	stripped := nonNumeric.ReplaceAllString(s, "")
	stripped = dotRuns.ReplaceAllString(stripped, ".")
	stripped = strings.Trim(stripped, ".")
	if stripped == "" {
		log.Debugf("version %q has no numeric part, using %s", s, zeroVersion)
		return zeroVersion
	}

	v, err := goversion.NewVersion(stripped)
	if err != nil {
		log.Debugf("failed to parse version %q (stripped %q): %v", s, stripped, err)
		return zeroVersion
	}
	return v
}

// Compare returns 1 if a > b, -1 if a < b and 0 if both are equal.
// Segments are compared numerically, the shorter version is padded with zeros.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// IsNewer reports whether remote is strictly greater than local
func IsNewer(remote, local string) bool {
	return Compare(remote, local) > 0
}
