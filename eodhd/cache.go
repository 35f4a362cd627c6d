package eodhd

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/taxlot/date"
	"github.com/rs/zerolog"
)

// diskCache implements a simple disk cache for HTTP responses. Keys include
// the current day, so entries expire daily.
type diskCache struct {
	base http.RoundTripper
	dir  string
	log  zerolog.Logger
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first, otherwise it proceeds with the actual HTTP request
// and caches the response if it is successful.
func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("tlx-%x", sha1.Sum([]byte(key)))

	if cached, err := c.get(key, req); err == nil {
		c.log.Debug().Str("path", req.URL.Path).Msg("cache hit")
		return cached, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Str("status", resp.Status).Msg("http")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.log.Warn().Err(err).Msg("cache write error (ignored)")
	}
	return resp, nil
}

// get retrieves a cached response from disk.
func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk. The response body remains readable.
func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o600)
}

// newDailyCachingClient returns an http.Client caching responses in dir for
// the day.
func newDailyCachingClient(dir string, log zerolog.Logger) *http.Client {
	return &http.Client{Transport: &diskCache{base: http.DefaultTransport, dir: dir, log: log}}
}
