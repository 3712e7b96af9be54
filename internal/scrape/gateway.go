// Package scrape is the client for the external HTML-fetching gateway
// (ScrapingBee). It issues exactly one GET per call with JavaScript rendering
// disabled, and classifies the result as success, HTTP failure or transport
// failure. No retries, no key rotation.
package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/html-downloader-bot/internal/observability"
)

// Defaults for the ScrapingBee endpoint.
const (
	DefaultBaseURL = "https://app.scrapingbee.com/api/v1/"
	DefaultTimeout = 30 * time.Second
)

// Response is any HTTP reply from the gateway.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the gateway returned the page (HTTP 200).
func (r *Response) OK() bool { return r != nil && r.StatusCode == http.StatusOK }

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; used as resty's transport client
}

// Client talks to the gateway.
type Client struct {
	http    *resty.Client
	baseURL string
	tracer  trace.Tracer
}

// NewClient builds a gateway client. Zero options select the ScrapingBee
// endpoint and a 30s timeout.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "text/html,*/*")

	return &Client{
		http:    rc,
		baseURL: opts.BaseURL,
		tracer:  observability.Tracer("internal/scrape"),
	}
}

// Fetch retrieves pageURL through the gateway using apiKey. Any HTTP reply,
// including non-200, is returned as a Response with a nil error. A transport
// fault (timeout, DNS, refused connection) returns a nil Response and an
// error whose text never contains the key.
func (c *Client) Fetch(ctx context.Context, apiKey, pageURL string) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "scrape.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("scrape.url", pageURL)),
	)
	defer span.End()

	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":   apiKey,
			"url":       pageURL,
			"render_js": "false",
		}).
		Get(c.baseURL)
	elapsed := time.Since(start)

	if err != nil {
		err = redactKey(err, apiKey)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.ObserveScrape(observability.OutcomeTransport, elapsed)
		return nil, err
	}

	out := &Response{StatusCode: res.StatusCode(), Body: res.Body()}
	span.SetAttributes(
		attribute.Int("http.response.status_code", out.StatusCode),
		attribute.Int("http.response.body.size", len(out.Body)),
	)
	if out.OK() {
		observability.ObserveScrape(observability.OutcomeSuccess, elapsed)
	} else {
		span.SetStatus(codes.Error, http.StatusText(out.StatusCode))
		observability.ObserveScrape(observability.OutcomeHTTPError, elapsed)
	}
	return out, nil
}

// redactKey strips the query string from URL errors so the API key does not
// reach logs or chat messages.
func redactKey(err error, apiKey string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: stripQuery(ue.URL), Err: ue.Err}
	}
	if apiKey != "" {
		return errors.New(strings.ReplaceAll(err.Error(), apiKey, "REDACTED"))
	}
	return err
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "gateway"
	}
	u.RawQuery = ""
	return u.String()
}
