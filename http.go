package varframe

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DEFAULT_USER_AGENT is sent by OpenHTTP unless overridden.
const DEFAULT_USER_AGENT = "varframe"

type httpOptions struct {
	userAgent string
	source    []SourceOption
}

type HTTPOption func(*httpOptions)

func WithUserAgent(ua string) HTTPOption {
	return func(o *httpOptions) { o.userAgent = ua }
}

// WithHTTPSourceOptions configures the ReaderSource built over the response body.
func WithHTTPSourceOptions(opts ...SourceOption) HTTPOption {
	return func(o *httpOptions) { o.source = append(o.source, opts...) }
}

// OpenHTTP issues a GET for url and returns a ReaderSource over the response
// body. The body stays open until the source (or a Pipeline wrapping it) is
// closed. A non-2xx response is reported as *HTTPStatusError.
//
// The request is bound to ctx, so cancelling ctx also aborts a blocked read.
func OpenHTTP(ctx context.Context, client *http.Client, url string, opts ...HTTPOption) (*ReaderSource, error) {
	o := httpOptions{userAgent: DEFAULT_USER_AGENT}
	for _, opt := range opts {
		opt(&o)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("varframe: build request: %w", err)
	}
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: url}
	}

	src, err := NewReaderSource(resp.Body, o.source...)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return src, nil
}
