package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/jokeimport/internal/config"
)

// Fetcher retrieves response bodies from the upstream API.
type Fetcher struct {
	// client performs the requests. Its own Timeout is left unset;
	// the per-request deadline is applied through the request context.
	client *http.Client

	// timeout bounds each request including reading the body.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits how much of a response body is read.
	maxBodySize int64

	// proxyAddress is the optional SOCKS5 proxy.
	proxyAddress string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header. An empty string keeps the default.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes accepted.
// Zero or less keeps the default.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy.
// The address is "host:port" or a socks5:// URL, optionally with credentials.
func WithProxy(address string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = address
	}
}

// WithHTTPClient replaces the HTTP client. WithProxy is ignored when set.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher. Unset options fall back to the config defaults.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if f.proxyAddress != "" {
			dial, err := socks5DialContext(f.proxyAddress)
			if err != nil {
				return nil, err
			}
			transport.Proxy = nil
			transport.DialContext = dial
		}
		f.client = &http.Client{Transport: transport}
	}
	return f, nil
}

// socks5DialContext builds a DialContext func that dials through the proxy.
func socks5DialContext(address string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	raw := address
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxyAddress, err)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: expected host:port", ErrInvalidProxyAddress)
	}

	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxyAddress, err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// Fetch performs one GET request and returns the response body.
// Any failure is returned as *FetchError. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.wrap(ctx, reqCtx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, f.wrap(ctx, reqCtx, rawURL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{
			URL: rawURL,
			Err: fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodySize),
		}
	}
	return body, nil
}

// wrap converts a transport error into a FetchError, flagging timeouts
// caused by the per-request deadline rather than the caller's context.
func (f *Fetcher) wrap(parent, reqCtx context.Context, rawURL string, err error) error {
	fe := &FetchError{URL: rawURL, Err: err}
	if parent.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		fe.Timeout = true
		fe.Limit = f.timeout
		return fe
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && parent.Err() == nil {
		fe.Timeout = true
		fe.Limit = f.timeout
	}
	return fe
}
