package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	authclient "github.com/MrEthical07/goAuth-client"
)

// ErrForeignHost is returned for requests outside the configured base URL.
var ErrForeignHost = errors.New("request target is outside the authenticated base URL")

// Sender is the pipeline the round tripper delegates to. [*authclient.Pipeline] and
// [*authclient.Client] (through Do) both satisfy it.
type Sender interface {
	Send(ctx context.Context, req authclient.Request) (*authclient.Response, error)
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(ctx context.Context, req authclient.Request) (*authclient.Response, error)

func (f SenderFunc) Send(ctx context.Context, req authclient.Request) (*authclient.Response, error) {
	return f(ctx, req)
}

// RoundTripper implements http.RoundTripper over a [Sender].
type RoundTripper struct {
	sender Sender
	base   *url.URL
}

// NewRoundTripper serves requests under baseURL through sender.
func NewRoundTripper(sender Sender, baseURL string) (*RoundTripper, error) {
	if sender == nil {
		return nil, errors.New("middleware: nil sender")
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("middleware: base URL %q must be an absolute http(s) URL", baseURL)
	}
	return &RoundTripper{sender: sender, base: base}, nil
}

// NewHTTPClient returns an *http.Client that authenticates every request through client.
func NewHTTPClient(client *authclient.Client) (*http.Client, error) {
	rt, err := NewRoundTripper(SenderFunc(client.Do), client.Config().Transport.BaseURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: rt}, nil
}

// RoundTrip sends req with a bearer token.
//
// A response that is still 401 after the forced refresh is returned as a normal response.
// Errors are returned when no session exists or the network fails.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	path, err := rt.relativePath(req.URL)
	if err != nil {
		closeBody(req)
		return nil, err
	}

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		body, err = io.ReadAll(req.Body)
		closeBody(req)
		if err != nil {
			return nil, fmt.Errorf("middleware: buffer request body: %w", err)
		}
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Authorization")

	resp, err := rt.sender.Send(req.Context(), authclient.Request{
		Method: req.Method,
		Path:   path,
		Query:  req.URL.Query(),
		Header: header,
		Body:   body,
	})
	if err != nil && (resp == nil || !errors.Is(err, authclient.ErrUnauthorized)) {
		return nil, err
	}

	return toHTTPResponse(req, resp), nil
}

func (rt *RoundTripper) relativePath(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrForeignHost
	}
	if !strings.EqualFold(u.Scheme, rt.base.Scheme) || !strings.EqualFold(u.Host, rt.base.Host) {
		return "", fmt.Errorf("%w: %s://%s", ErrForeignHost, u.Scheme, u.Host)
	}

	prefix := strings.TrimRight(rt.base.Path, "/")
	if prefix == "" {
		return u.Path, nil
	}
	rest, ok := strings.CutPrefix(u.Path, prefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return "", fmt.Errorf("%w: path %s", ErrForeignHost, u.Path)
	}
	return rest, nil
}

func toHTTPResponse(req *http.Request, resp *authclient.Response) *http.Response {
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	// The body has already been decoded and read in full.
	header.Del("Content-Encoding")
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	return &http.Response{
		Status:        strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
