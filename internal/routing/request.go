package routing

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestView is a read-only projection of an inbound request.
type RequestView struct {
	Method string

	// Path is the framework-parsed path, without query string. May be empty.
	Path string

	// URL is the raw request target and may include a query string.
	URL string

	Header http.Header
	Body   []byte
	Query  url.Values
}

// NewRequestView builds a view of r. body is the already captured request
// body; r.Body itself is never read here.
func NewRequestView(r *http.Request, body []byte) *RequestView {
	v := &RequestView{
		Method: r.Method,
		URL:    r.RequestURI,
		Header: r.Header,
		Body:   body,
	}
	if r.URL != nil {
		v.Path = r.URL.Path
		v.Query = r.URL.Query()
		if v.URL == "" {
			v.URL = r.URL.RequestURI()
		}
	}
	return v
}

// NormalizePath returns the canonical path used for matching: the parsed
// path when present, otherwise the raw URL cut at the first '?', and "/"
// when both are empty. Trailing slashes are preserved.
func NormalizePath(v *RequestView) string {
	if v == nil {
		return "/"
	}
	if v.Path != "" {
		return v.Path
	}
	path, _, _ := strings.Cut(v.URL, "?")
	if path == "" {
		return "/"
	}
	return path
}
