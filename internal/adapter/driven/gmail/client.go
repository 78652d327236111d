// Package gmail implements the MailProvider port using the Gmail API client.
package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

const defaultCallTimeout = 30 * time.Second

// inboxQuery limits listing to the inbox; read state does not matter here.
const inboxQuery = "in:inbox"

// Compile-time interface satisfaction check.
var _ driven.MailProvider = (*Client)(nil)

// Config holds the OAuth application settings for the Gmail provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// CallTimeout bounds each provider call that arrives without a deadline.
	// Zero selects the default.
	CallTimeout time.Duration

	// Endpoint overrides the Gmail API base URL. Intended for testing,
	// allowing injection of an httptest server.
	Endpoint string
}

// Client implements the driven.MailProvider port with the following
// transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. oauth2 static token source carrying the caller's access token
//  3. google.golang.org/api Gmail client
type Client struct {
	cfg      *oauth2.Config
	cache    *httpcache.Transport
	timeout  time.Duration
	endpoint string
}

// NewClient creates a Gmail API client for the given OAuth application.
func NewClient(cfg Config) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Client{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gmailapi.GmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		cache:    httpcache.NewMemoryCacheTransport(),
		timeout:  timeout,
		endpoint: cfg.Endpoint,
	}
}

// AuthCodeURL builds the user consent URL. Offline access is required so the
// provider issues a refresh token, and ApprovalForce guarantees one even when
// the user already consented before.
func (c *Client) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (driven.TokenGrant, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return driven.TokenGrant{}, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return tokenGrant(tok, ""), nil
}

// Refresh obtains a fresh access token from the stored refresh token. The
// returned grant carries a refresh token only when the provider rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (driven.TokenGrant, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return driven.TokenGrant{}, fmt.Errorf("refreshing access token: %w", err)
	}

	return tokenGrant(tok, refreshToken), nil
}

// ListMessageIDs returns up to max inbox message IDs in the provider's
// listing order, most recent first.
func (c *Client) ListMessageIDs(ctx context.Context, accessToken string, max int64) ([]string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, max)
	pageToken := ""

	for {
		req := svc.Users.Messages.List("me").Q(inboxQuery).MaxResults(max - int64(len(ids)))
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("listing messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		if resp.NextPageToken == "" || int64(len(ids)) >= max {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetMessage fetches one message in full format and maps it to the domain
// representation.
func (c *Client) GetMessage(ctx context.Context, accessToken, id string) (*model.RawMessage, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}

	return mapMessage(msg), nil
}

// callContext bounds calls that arrive without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// service builds a Gmail service carrying the caller's access token over the
// caching transport.
func (c *Client) service(ctx context.Context, accessToken string) (*gmailapi.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: c.cache})

	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return svc, nil
}

// tokenGrant maps an oauth2 token to the port's grant. previousRefresh
// suppresses the refresh token when the provider merely echoed it back.
func tokenGrant(tok *oauth2.Token, previousRefresh string) driven.TokenGrant {
	grant := driven.TokenGrant{
		AccessToken: tok.AccessToken,
		ExpiresIn:   int64(time.Until(tok.Expiry).Seconds()),
	}
	if tok.RefreshToken != "" && tok.RefreshToken != previousRefresh {
		grant.RefreshToken = tok.RefreshToken
	}

	return grant
}

// mapMessage converts a Gmail API message to the domain representation.
// Returns an empty RawMessage when the payload is absent.
func mapMessage(msg *gmailapi.Message) *model.RawMessage {
	raw := &model.RawMessage{ProviderID: msg.Id}
	if msg.Payload == nil {
		return raw
	}

	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, model.RawHeader{Name: h.Name, Value: h.Value})
	}
	raw.Body = mapPart(msg.Payload)

	return raw
}

func mapPart(part *gmailapi.MessagePart) model.RawPart {
	out := model.RawPart{MIMEType: part.MimeType}
	if part.Body != nil {
		out.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		out.Parts = append(out.Parts, mapPart(child))
	}

	return out
}
