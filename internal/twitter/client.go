package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"

	"github.com/hakyung/xbots/internal/textbudget"
)

const (
	tweetsURL = "https://api.twitter.com/2/tweets"

	// DefaultInterval spaces consecutive posts of one account.
	DefaultInterval = 1500 * time.Millisecond
)

// Thread is the outcome of posting a thread.
type Thread struct {
	MainID   string
	ReplyIDs []string
	// Failed counts replies that could not be posted.
	Failed int
}

// Publisher posts single posts and threads.
type Publisher interface {
	Post(ctx context.Context, text string) (string, error)
	Thread(ctx context.Context, main string, replies []string) (*Thread, error)
}

// Client posts through the X API v2 with OAuth 1.0a user context.
type Client struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
	log        *slog.Logger
	onTruncate func()
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the create-post URL.
func WithEndpoint(url string) Option { return func(c *Client) { c.endpoint = url } }

// WithInterval sets the minimum gap between posts. Zero disables pacing.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithTruncationHook is called every time a post is shortened.
func WithTruncationHook(f func()) Option { return func(c *Client) { c.onTruncate = f } }

// WithHTTPClient replaces the signing HTTP client. Tests use it to skip
// OAuth.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// NewClient creates a client for one account.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if !creds.Complete() {
		return nil, ErrInvalidCredentials
	}
	config := oauth1.NewConfig(creds.AppKey, creds.AppSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	c := &Client{
		httpClient: config.Client(oauth1.NoContext, token),
		endpoint:   tweetsURL,
		limiter:    rate.NewLimiter(rate.Every(DefaultInterval), 1),
		log:        slog.Default(),
	}
	c.httpClient.Timeout = 30 * time.Second
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type createRequest struct {
	Text  string     `json:"text"`
	Reply *replySpec `json:"reply,omitempty"`
}

type replySpec struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes one post, shortened to the weighted length limit if needed.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	id, err := c.create(ctx, c.fit(text), "")
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	c.log.Info("post published", "id", id)
	return id, nil
}

// Thread publishes main and then each reply in order, each replying to the
// last post that succeeded. A failed main post aborts the thread; a failed
// reply is logged and skipped.
func (c *Client) Thread(ctx context.Context, main string, replies []string) (*Thread, error) {
	mainID, err := c.create(ctx, c.fit(main), "")
	if err != nil {
		return nil, fmt.Errorf("main post: %w", err)
	}
	c.log.Info("main post published", "id", mainID, "replies", len(replies))

	th := &Thread{MainID: mainID}
	last := mainID
	for i, reply := range replies {
		id, err := c.create(ctx, c.fit(reply), last)
		if err != nil {
			if ctx.Err() != nil {
				return th, ctx.Err()
			}
			th.Failed++
			c.log.Error("reply failed", "index", i, "in_reply_to", last, "error", err)
			continue
		}
		th.ReplyIDs = append(th.ReplyIDs, id)
		last = id
		c.log.Info("reply published", "index", i, "id", id)
	}
	return th, nil
}

func (c *Client) fit(text string) string {
	fitted := textbudget.Fit(text, textbudget.MaxWeight, textbudget.WeightedLength)
	if fitted != text {
		c.log.Warn("post truncated",
			"weight", textbudget.WeightedLength(text),
			"max", textbudget.MaxWeight,
		)
		if c.onTruncate != nil {
			c.onTruncate()
		}
	}
	return fitted
}

func (c *Client) create(ctx context.Context, text, replyTo string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := createRequest{Text: text}
	if replyTo != "" {
		req.Reply = &replySpec{InReplyToTweetID: replyTo}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var out createResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("response without post id: %s", string(respBody))
	}
	return out.Data.ID, nil
}
