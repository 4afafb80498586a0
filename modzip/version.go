package modzip

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultBumpedVersion is used when an existing version cannot be parsed.
const DefaultBumpedVersion = "1.0.1"

// BumpVersion increments the patch component of a "major.minor.patch"
// version. Any other shape yields DefaultBumpedVersion.
func BumpVersion(v string) string {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) != 3 {
		return DefaultBumpedVersion
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return DefaultBumpedVersion
		}
		nums[i] = n
	}
	return strconv.Itoa(nums[0]) + "." + strconv.Itoa(nums[1]) + "." + strconv.Itoa(nums[2]+1)
}

// CompareVersions compares dotted versions component by component,
// numerically where both components are numbers. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		case x != y:
			return strings.Compare(x, y)
		}
	}
	return 0
}

// DependencyName returns the mod name a dependency string refers to,
// without prefix markers or version constraint.
//
//	"? space-age >= 2.0"  -> "space-age"
//	"(?) bobores"         -> "bobores"
func DependencyName(dep string) string {
	s := strings.TrimSpace(dep)
	for _, p := range []string{"(?)", "?", "~", "!"} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	if i := strings.IndexAny(s, "<>="); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// NormalizeDependency rewrites dep as an optional dependency ("? name ...")
// keeping any version constraint. Incompatibilities ("!") are returned
// unchanged.
func NormalizeDependency(dep string) string {
	s := strings.TrimSpace(dep)
	if strings.HasPrefix(s, "!") {
		return s
	}
	for _, p := range []string{"(?)", "?", "~"} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	return "? " + strings.Join(strings.Fields(s), " ")
}

// MergeDependencies keeps existing dependency strings as written, drops
// duplicates by mod name (first occurrence wins), appends "? <mod>" for
// each mod not yet listed, and returns the result sorted.
func MergeDependencies(existing []string, mods ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(dep, entry string) {
		name := DependencyName(dep)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, entry)
	}
	for _, d := range existing {
		add(d, strings.TrimSpace(d))
	}
	for _, m := range mods {
		add(m, NormalizeDependency(m))
	}
	sort.Strings(out)
	return out
}
