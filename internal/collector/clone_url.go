package collector

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// user@host.xz:path/to/repo.git
var scpURLRgx = regexp.MustCompile(`^[\w\-\.]+@(?P<host>[\w\-\.]+):(?P<path>[^/].*)$`)

// NormaliseCloneURL rewrites a repository URL to its https form. git://,
// ssh://, http:// and scp-like URLs are accepted; credentials and ports of
// the other transports are dropped.
func NormaliseCloneURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty clone url")
	}

	if m := scpURLRgx.FindStringSubmatch(raw); m != nil {
		raw = "ssh://git@" + m[scpURLRgx.SubexpIndex("host")] + "/" + m[scpURLRgx.SubexpIndex("path")]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid clone url %q: %w", raw, err)
	}

	switch u.Scheme {
	case "https":
	case "http", "git", "ssh", "git+ssh":
		u.Scheme = "https"
		u.User = nil
		u.Host = u.Hostname()
	default:
		return "", fmt.Errorf("unsupported clone url scheme %q in %q", u.Scheme, raw)
	}

	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("clone url %q has no host or path", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}
