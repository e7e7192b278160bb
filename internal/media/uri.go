package media

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	driveRe     = regexp.MustCompile(`^[A-Za-z]:/`)
	drivePathRe = regexp.MustCompile(`^/[A-Za-z]:/`)
)

// ToFileURI turns an OS path into a percent-encoded file:// URI that
// PathFromURI maps back to the same path. Backslashes are normalized,
// Windows drive paths get the file:/// form.
func ToFileURI(path string) string {
	norm := strings.ReplaceAll(path, `\`, "/")
	if driveRe.MatchString(norm) {
		norm = "/" + norm
	}
	return (&url.URL{Scheme: "file", Path: norm}).String()
}

// IsFileURI reports whether uri uses the file scheme.
func IsFileURI(uri string) bool {
	return strings.HasPrefix(uri, "file://")
}

// PathFromURI returns the local path of a file:// URI. Other strings are
// returned as they are, assumed to already be paths.
func PathFromURI(uri string) string {
	if !IsFileURI(uri) {
		return uri
	}
	p := strings.TrimPrefix(uri, "file://")
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = u.Host + p
		}
	} else if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	if drivePathRe.MatchString(p) {
		p = p[1:]
	}
	return p
}
