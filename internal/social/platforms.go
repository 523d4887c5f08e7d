package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/news"
)

// Message is what gets posted for one article.
type Message struct {
	Text  string
	Link  string
	Title string
}

// Platform is one social network account.
type Platform interface {
	Name() string
	Format(a news.Published, link string) string
	Post(ctx context.Context, m Message) (postID string, err error)
}

var (
	_ Platform = (*Twitter)(nil)
	_ Platform = (*Facebook)(nil)
	_ Platform = (*LinkedIn)(nil)
)

const postTimeout = 30 * time.Second

func newClient() *http.Client {
	return &http.Client{Timeout: postTimeout}
}

// postJSON sends body to endpoint and decodes the reply into out.
func postJSON(ctx context.Context, client *http.Client, method, endpoint string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Twitter posts through the X API v2 with a user access token.
type Twitter struct {
	Token   string
	BaseURL string
	client  *http.Client
}

// NewTwitter creates a Twitter platform.
func NewTwitter(token string) *Twitter {
	return &Twitter{Token: token, BaseURL: "https://api.twitter.com", client: newClient()}
}

func (t *Twitter) Name() string { return "twitter" }

func (t *Twitter) Format(a news.Published, link string) string { return formatTwitter(a, link) }

func (t *Twitter) Post(ctx context.Context, m Message) (string, error) {
	if t.Token == "" {
		return "", fmt.Errorf("twitter access token not configured")
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := postJSON(ctx, t.client, http.MethodPost, t.BaseURL+"/2/tweets",
		map[string]string{"Authorization": "Bearer " + t.Token},
		map[string]string{"text": m.Text}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// Facebook posts to a page feed through the Graph API.
type Facebook struct {
	PageID  string
	Token   string
	BaseURL string
	client  *http.Client
}

// NewFacebook creates a Facebook platform.
func NewFacebook(pageID, token string) *Facebook {
	return &Facebook{PageID: pageID, Token: token, BaseURL: "https://graph.facebook.com/v18.0", client: newClient()}
}

func (f *Facebook) Name() string { return "facebook" }

func (f *Facebook) Format(a news.Published, link string) string { return formatFacebook(a, link) }

func (f *Facebook) Post(ctx context.Context, m Message) (string, error) {
	if f.Token == "" || f.PageID == "" {
		return "", fmt.Errorf("facebook page id or access token not configured")
	}
	var resp struct {
		ID string `json:"id"`
	}
	err := postJSON(ctx, f.client, http.MethodPost, f.BaseURL+"/"+f.PageID+"/feed", nil,
		map[string]string{"message": m.Text, "access_token": f.Token}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// LinkedIn shares an article link from the token owner's profile.
type LinkedIn struct {
	Token   string
	BaseURL string
	client  *http.Client
}

// NewLinkedIn creates a LinkedIn platform.
func NewLinkedIn(token string) *LinkedIn {
	return &LinkedIn{Token: token, BaseURL: "https://api.linkedin.com", client: newClient()}
}

func (l *LinkedIn) Name() string { return "linkedin" }

func (l *LinkedIn) Format(a news.Published, link string) string { return formatLinkedIn(a, link) }

func (l *LinkedIn) Post(ctx context.Context, m Message) (string, error) {
	if l.Token == "" {
		return "", fmt.Errorf("linkedin access token not configured")
	}
	auth := map[string]string{"Authorization": "Bearer " + l.Token}

	var me struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, l.client, http.MethodGet, l.BaseURL+"/v2/me", auth, nil, &me); err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}
	if me.ID == "" {
		return "", fmt.Errorf("linkedin profile has no id")
	}

	share := map[string]any{
		"author":         "urn:li:person:" + me.ID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": m.Text},
				"shareMediaCategory": "ARTICLE",
				"media": []map[string]any{{
					"status":      "READY",
					"originalUrl": m.Link,
					"title":       map[string]string{"text": m.Title},
				}},
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	auth["X-Restli-Protocol-Version"] = "2.0.0"

	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, l.client, http.MethodPost, l.BaseURL+"/v2/ugcPosts", auth, share, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
