package instance

import (
	"net/url"
	"strings"
)

// ManagedDomainSuffixes are host suffixes of the managed service. A bare host
// ending in one of them is reduced to its first label even without a scheme.
var ManagedDomainSuffixes = []string{
	".databases.neo4j.io",
	".neo4j.io",
}

// NormalizeID reduces a connection URI or managed hostname to the bare
// instance id (the host's first label). Plain ids are returned trimmed.
//
//	neo4j+s://abc123.databases.neo4j.io       -> abc123
//	bolt://abc123.example.internal:7687       -> abc123
//	abc123.databases.neo4j.io                 -> abc123
//	abc123                                    -> abc123
func NormalizeID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err == nil && u.Hostname() != "" {
			return firstLabel(u.Hostname())
		}
		// Unparseable URI: take whatever sits between the scheme and the
		// first path, port, or query separator.
		_, rest, _ := strings.Cut(value, "://")
		if i := strings.IndexAny(rest, "/:?#"); i >= 0 {
			rest = rest[:i]
		}
		if j := strings.LastIndex(rest, "@"); j >= 0 {
			rest = rest[j+1:]
		}
		return firstLabel(rest)
	}

	lower := strings.ToLower(value)
	for _, suffix := range ManagedDomainSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return firstLabel(value)
		}
	}
	return value
}

func firstLabel(host string) string {
	label, _, _ := strings.Cut(host, ".")
	return strings.TrimSpace(label)
}
