package resolve

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// compareVersions orders two version strings. Versions that parse as
// semantic versions are compared as such; anything else (1.2.3.Final,
// 2.0-M1) falls back to a segment-wise comparison where numeric segments
// compare numerically.
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareSegments(a, b)
}

func compareSegments(a, b string) int {
	split := func(s string) []string {
		return strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '-' || r == '_' })
	}
	sa, sb := split(a), split(b)
	for i := 0; i < len(sa) || i < len(sb); i++ {
		switch {
		case i >= len(sa):
			return -1
		case i >= len(sb):
			return 1
		}
		na, errA := strconv.Atoi(sa[i])
		nb, errB := strconv.Atoi(sb[i])
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case errA == nil:
			return 1
		case errB == nil:
			return -1
		default:
			if c := strings.Compare(strings.ToLower(sa[i]), strings.ToLower(sb[i])); c != 0 {
				return c
			}
		}
	}
	return strings.Compare(a, b)
}
