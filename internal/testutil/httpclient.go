// Package testutil holds helpers shared by package tests.
package testutil

import (
	"net/http"
	"net/url"
)

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return t.base.RoundTrip(r)
}

// RewriteClient returns an http.Client that sends every request to serverURL
// while keeping the original Host header, so adapters that build
// https://{shop}/... URLs can be pointed at an httptest server.
func RewriteClient(serverURL string) *http.Client {
	target, err := url.Parse(serverURL)
	if err != nil {
		panic(err)
	}
	return &http.Client{Transport: rewriteTransport{target: target, base: http.DefaultTransport}}
}
