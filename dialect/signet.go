package dialect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Signet identifies a database product and version. It is a comparable
// value and two signets match structurally when all fields are equal.
type Signet struct {
	Vendor string
	Major  int
	Minor  int
}

// NewSignet returns a signet for the given vendor and version.
func NewSignet(vendor string, major, minor int) Signet {
	return Signet{Vendor: vendor, Major: major, Minor: minor}
}

// String returns the string representation of the signet.
func (s Signet) String() string {
	return fmt.Sprintf("%s %d.%d", s.Vendor, s.Major, s.Minor)
}

// Less reports if s is an older version than o. Vendors are not compared.
func (s Signet) Less(o Signet) bool {
	if s.Major != o.Major {
		return s.Major < o.Major
	}
	return s.Minor < o.Minor
}

// versionRe extracts the leading major.minor pair of a server version string,
// e.g. "8.0.36-0ubuntu0.22.04.1", "10.11.6-MariaDB" or "16.2 (Debian 16.2-1)".
var versionRe = regexp.MustCompile(`^\D*(\d+)(?:\.(\d+))?`)

// ParseVersion parses the major and minor components of a version string.
func ParseVersion(v string) (major, minor int, err error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return 0, 0, fmt.Errorf("dialect: invalid version %q", v)
	}
	if major, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, fmt.Errorf("dialect: invalid major version %q: %w", v, err)
	}
	if m[2] != "" {
		if minor, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, fmt.Errorf("dialect: invalid minor version %q: %w", v, err)
		}
	}
	return major, minor, nil
}

// Matcher decides if a dialect entry serves a signet. The policy (exact
// version or version floor) belongs to the entry, not to the resolver.
type Matcher interface {
	Match(Signet) bool
}

// MatchFunc is an adapter to allow the use of ordinary functions as Matcher.
type MatchFunc func(Signet) bool

// Match calls f(s).
func (f MatchFunc) Match(s Signet) bool { return f(s) }

// Exact returns a matcher that accepts only the given signet.
func Exact(s Signet) Matcher {
	return exact(s)
}

type exact Signet

func (e exact) Match(s Signet) bool { return Signet(e) == s }

func (e exact) String() string { return Signet(e).String() }

// Floor returns a matcher that accepts the given vendor at the given
// version or any newer one.
func Floor(s Signet) Matcher {
	return floor(s)
}

type floor Signet

func (f floor) Match(s Signet) bool {
	return s.Vendor == f.Vendor && !s.Less(Signet(f))
}

func (f floor) String() string { return Signet(f).String() + "+" }
