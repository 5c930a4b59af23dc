// Package doclient is the DigitalOcean resource client used by the tool
// dispatcher, the provisioning waiter and the deploy command.
package doclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/version"
)

// DefaultBaseURL is the public DigitalOcean API endpoint.
const DefaultBaseURL = "https://api.digitalocean.com/"

// Client issues authenticated requests against the DigitalOcean API.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	godo    *godo.Client
	baseURL string
	log     *logging.Logger
}

type options struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	log        *logging.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client whose transport carries requests.
// The bearer token is layered on top of it.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// tokenSource hands the credential to oauth2 as a static bearer token.
type tokenSource struct {
	cred domain.Credential
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: t.cred.Token(), TokenType: "Bearer"}, nil
}

// New creates a client authenticated with cred. An empty credential is a
// ConfigurationError and no client is built.
func New(cred domain.Credential, opts ...Option) (*Client, error) {
	if cred.Empty() {
		return nil, domain.ConfigurationError("create client", "API token is empty")
	}

	o := options{
		baseURL:   DefaultBaseURL,
		userAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Nop()
	}
	if !strings.HasSuffix(o.baseURL, "/") {
		o.baseURL += "/"
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	httpClient := oauth2.NewClient(ctx, tokenSource{cred: cred})

	gc, err := godo.New(httpClient,
		godo.SetBaseURL(o.baseURL),
		godo.SetUserAgent(o.userAgent),
	)
	if err != nil {
		return nil, domain.ConfigurationError("create client", "invalid API endpoint %q: %v", o.baseURL, err)
	}

	log := o.log.Sub("doclient")
	log.Debug().
		Str("endpoint", o.baseURL).
		Str("token", cred.Redacted()).
		Msg("client initialized")

	return &Client{godo: gc, baseURL: o.baseURL, log: log}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// trace logs the outcome of one logical operation.
func (c *Client) trace(op string, start time.Time, err error) {
	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("op", op).Dur("elapsed", time.Since(start)).Msg("api call")
}
