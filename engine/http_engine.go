package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
)

const (
	defaultMaxBody        = 10 << 20
	defaultAcceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
	maxRedirects          = 10
	dialTimeout           = 10 * time.Second
)

// ErrNotHTML is returned for responses that are not HTML documents.
var ErrNotHTML = errors.New("http_engine: response is not html")

// StatusError reports an HTTP error status from a business website.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http_engine: %s returned status %d", e.URL, e.Code)
}

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Encoding": "identity",
}

// HTTPEngine fetches business websites with a Chrome TLS fingerprint and
// browser headers. Pages are not rendered.
type HTTPEngine struct {
	client         *http.Client
	acceptLanguage string
}

var (
	helloOnce sync.Once
	helloSpec *tls.ClientHelloSpec
)

// chromeHello returns Chrome's ClientHello restricted to http/1.1, since
// http.Transport cannot speak h2 over a utls conn. Nil means the preset
// could not be generated and the plain Chrome hello is used.
func chromeHello() *tls.ClientHelloSpec {
	helloOnce.Do(func() {
		spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
		if err != nil {
			return
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*tls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}
		helloSpec = &spec
	})
	return helloSpec
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	raw, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)

	var conn *tls.UConn
	if spec := chromeHello(); spec != nil {
		conn = tls.UClient(raw, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := conn.ApplyPreset(spec); err != nil {
			raw.Close()
			return nil, fmt.Errorf("http_engine: apply tls preset: %w", err)
		}
	} else {
		conn = tls.UClient(raw, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloChrome_Auto)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// NewHTTPEngine creates an HTTPEngine sending acceptLanguage with every
// request. An empty value uses Spanish with an English fallback.
func NewHTTPEngine(acceptLanguage string) *HTTPEngine {
	if acceptLanguage == "" {
		acceptLanguage = defaultAcceptLanguage
	}
	return &HTTPEngine{
		acceptLanguage: acceptLanguage,
		client: &http.Client{
			Transport: &http.Transport{DialTLSContext: dialChromeTLS},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("http_engine: stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

// Fetch GETs req.URL and returns the body when it is an HTML page. Error
// statuses yield a *StatusError and other content types ErrNotHTML.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_engine: build request: %w", err)
	}
	for k, v := range browserHeaders {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Accept-Language", e.acceptLanguage)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http_engine: get %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{URL: req.URL, Code: resp.StatusCode}
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml+xml") {
		return nil, fmt.Errorf("%w: %q", ErrNotHTML, ct)
	}

	limit := req.MaxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("http_engine: read body: %w", err)
	}

	return &FetchResult{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}
