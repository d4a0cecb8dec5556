package revision

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	namePrefix = "db"
	nameSuffix = ".zip"
	acmPrefix  = "ACM-"
)

// ErrInvalidACM reports an ACM name that cannot be used as a directory or key.
var ErrInvalidACM = errors.New("invalid acm name")

// ParseName extracts the revision number from a "db<N>.zip" filename.
func ParseName(name string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(lower, namePrefix) || !strings.HasSuffix(lower, nameSuffix) {
		return 0, false
	}
	digits := lower[len(namePrefix) : len(lower)-len(nameSuffix)]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatName returns the filename of revision n.
func FormatName(n int) string {
	return namePrefix + strconv.Itoa(n) + nameSuffix
}

// Latest returns the highest-numbered revision among names, ignoring
// anything that is not a revision filename.
func Latest(names []string) (string, int) {
	best, bestN := "", 0
	for _, name := range names {
		if n, ok := ParseName(name); ok && n > bestN {
			best, bestN = name, n
		}
	}
	return best, bestN
}

// Sorted returns the revision filenames from names in ascending order.
func Sorted(names []string) []string {
	type entry struct {
		name string
		n    int
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		if n, ok := ParseName(name); ok {
			entries = append(entries, entry{name, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

// NextName returns the filename that follows every revision in known.
// Entries that are not revision names (including "") are ignored, so callers
// may pass both the store's latest revision and the server's last check-in.
func NextName(known ...string) string {
	_, n := Latest(known)
	return FormatName(n + 1)
}

// Newer reports whether revision a is strictly newer than revision b.
// A non-revision name is older than any revision.
func Newer(a, b string) bool {
	an, _ := ParseName(a)
	bn, _ := ParseName(b)
	return an > bn
}

// CanonicalACM returns the canonical upper-case ACM name with the "ACM-"
// prefix, e.g. "cbcc" becomes "ACM-CBCC".
func CanonicalACM(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidACM)
	}
	if strings.ContainsAny(trimmed, `/\:`) || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidACM, name)
	}
	for _, r := range trimmed {
		if r <= ' ' {
			return "", fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidACM, name)
		}
	}
	canonical := cases.Upper(language.Und).String(trimmed)
	if !strings.HasPrefix(canonical, acmPrefix) {
		canonical = acmPrefix + canonical
	}
	if canonical == acmPrefix {
		return "", fmt.Errorf("%w: %q has no program name", ErrInvalidACM, name)
	}
	return canonical, nil
}
