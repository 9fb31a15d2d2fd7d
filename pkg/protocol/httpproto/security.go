package httpproto

import (
	"net/url"

	"goa.design/utcp/pkg/utcperr"
)

// checkSecure enforces the shared HTTP-family security invariant (spec
// §4.7): the target must be HTTPS or loopback HTTP. It runs before any
// network I/O, including discovery requests.
func checkSecure(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &utcperr.InsecureURLError{URL: rawURL}
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" {
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" {
			return nil
		}
	}
	return &utcperr.InsecureURLError{URL: rawURL}
}
