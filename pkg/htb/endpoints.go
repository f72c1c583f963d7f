package htb

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the default labs API root
	BaseURL = "https://labs.hackthebox.com/api/v4"

	// WebURL is the default web application root
	WebURL = "https://app.hackthebox.com"

	// ProfileEndpoint is the endpoint pattern for machine profiles
	ProfileEndpoint = "/machine/profile/%d"

	// WriteupEndpoint is the endpoint pattern for machine writeup PDFs
	WriteupEndpoint = "/machine/writeup/%d"

	// WriteupsPagePattern is the web page listing a machine's writeups
	WriteupsPagePattern = "/machines/%s/writeups"
)

// ProfileURL constructs the URL for fetching a machine profile
func ProfileURL(base string, id int) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(ProfileEndpoint, id)
}

// WriteupURL constructs the URL for downloading a machine writeup
func WriteupURL(base string, id int) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(WriteupEndpoint, id)
}

// WriteupsPageURL constructs the web URL of a machine's writeups page.
// The segment is a machine name or a numeric ID and is path-escaped.
func WriteupsPageURL(web, segment string) string {
	return strings.TrimRight(web, "/") + fmt.Sprintf(WriteupsPagePattern, url.PathEscape(segment))
}
