// Package wiki reads the observances (기념일) section of a Korean Wikipedia
// date page.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIURL    = "https://ko.wikipedia.org/w/api.php"
	defaultUserAgent = "NaNalBot/1.0"

	// ObservancesSection is the heading of the section we read.
	ObservancesSection = "기념일"
)

// Client queries the MediaWiki parse API.
type Client struct {
	apiURL    string
	userAgent string
	client    *http.Client
}

// NewClient creates a client. Empty arguments select the defaults.
func NewClient(apiURL, userAgent string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiURL:    apiURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PageTitle returns the date page title, e.g. "11월_10일".
func PageTitle(month, day int) string {
	return fmt.Sprintf("%d월_%d일", month, day)
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type sectionsResponse struct {
	Error *apiError `json:"error"`
	Parse struct {
		Sections []struct {
			Line  string `json:"line"`
			Index string `json:"index"`
		} `json:"sections"`
	} `json:"parse"`
}

type textResponse struct {
	Error *apiError `json:"error"`
	Parse struct {
		Text map[string]string `json:"text"`
	} `json:"parse"`
}

// Observances returns the observances section of the date page as
// markdown. A page without the section yields "" and no error.
func (c *Client) Observances(ctx context.Context, month, day int) (string, error) {
	page := PageTitle(month, day)

	var sections sectionsResponse
	if err := c.get(ctx, url.Values{"page": {page}, "prop": {"sections"}}, &sections); err != nil {
		return "", fmt.Errorf("sections of %s: %w", page, err)
	}
	if sections.Error != nil {
		return "", fmt.Errorf("sections of %s: %s: %s", page, sections.Error.Code, sections.Error.Info)
	}

	index := ""
	for _, s := range sections.Parse.Sections {
		if strings.TrimSpace(s.Line) == ObservancesSection {
			index = s.Index
			break
		}
	}
	if index == "" {
		slog.Info("no observances section", "page", page)
		return "", nil
	}

	var text textResponse
	if err := c.get(ctx, url.Values{"page": {page}, "prop": {"text"}, "section": {index}}, &text); err != nil {
		return "", fmt.Errorf("section %s of %s: %w", index, page, err)
	}
	if text.Error != nil {
		return "", fmt.Errorf("section %s of %s: %s: %s", index, page, text.Error.Code, text.Error.Info)
	}

	md, err := ToMarkdown(text.Parse.Text["*"])
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", page, err)
	}
	slog.Debug("observances fetched", "page", page, "chars", len(md))
	return md, nil
}

func (c *Client) get(ctx context.Context, q url.Values, out any) error {
	q.Set("action", "parse")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
