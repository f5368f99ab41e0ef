// Package safety implements the URL safety predicate. It is shared by the
// resolver, the fallback chain, and the web executor, which check every URL
// they hand onward with it. The OS-native backends in internal/osexec do
// not call it: their open_url/open_file launches are not checked.
package safety

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const maxURLLength = 2048

// cloudMetadataAddr is the well-known cloud-metadata IP that must never be
// reachable from a resolved URL.
const cloudMetadataAddr = "169.254.169.254"

// IsSafeURL reports whether a URL may be handed outside the process:
//   - non-empty and <= 2048 characters
//   - scheme in {http, https}
//   - host present
//   - host is not localhost/127.0.0.1/::1
//   - if host parses as an IP: reject private, loopback, link-local, or the
//     cloud-metadata address
func IsSafeURL(raw string) bool {
	_, err := CheckSafeURL(raw)
	return err == nil
}

// CheckSafeURL is IsSafeURL with a descriptive reason on rejection, useful
// for surfacing WEB_UNSAFE_URL detail strings.
func CheckSafeURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("url is empty")
	}
	if len(raw) > maxURLLength {
		return nil, fmt.Errorf("url exceeds %d characters", maxURLLength)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("url does not parse: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("scheme %q not in {http, https}", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("url has no host")
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" || lowerHost == "127.0.0.1" || lowerHost == "::1" {
		return nil, fmt.Errorf("host %q is disallowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return nil, fmt.Errorf("host %q is a private/loopback/link-local address", host)
		}
		if host == cloudMetadataAddr {
			return nil, fmt.Errorf("host %q is the cloud metadata address", host)
		}
	}

	return u, nil
}
