package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPError represents a transport-level failure with status code.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// WeChatClient talks to the Official Account HTTP API. All calls carry a
// bounded timeout and a small bounded retry for transient failures; platform
// rejections (errcode != 0) are never retried here except for the single
// auth-refresh pass in withAuth.
type WeChatClient struct {
	baseURL   string
	appID     string
	appSecret string
	client    *http.Client
	tokens    *TokenManager
	retries   int
	backoff   time.Duration
}

// NewWeChatClient creates a client with its own token manager wired to the
// token endpoint.
func NewWeChatClient(settings *Settings, creds *Credentials) *WeChatClient {
	c := &WeChatClient{
		baseURL:   strings.TrimRight(settings.WeChat.BaseURL, "/"),
		appID:     creds.AppID,
		appSecret: creds.AppSecret,
		client:    &http.Client{Timeout: settings.HTTPTimeout()},
		retries:   settings.HTTP.Retries,
		backoff:   time.Second,
	}
	c.tokens = NewTokenManager(c.fetchToken)
	return c
}

// Tokens exposes the client's token manager so the orchestrator can pass it
// explicitly where needed.
func (c *WeChatClient) Tokens() *TokenManager {
	return c.tokens
}

// fetchToken exchanges app credentials for an access token.
func (c *WeChatClient) fetchToken(ctx context.Context) (AccessToken, error) {
	query := url.Values{
		"grant_type": {"client_credential"},
		"appid":      {c.appID},
		"secret":     {c.appSecret},
	}
	endpoint := c.baseURL + "/token?" + query.Encode()

	body, err := c.doWithRetry(func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return AccessToken{}, err
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := decodeResponse(body, &result); err != nil {
		return AccessToken{}, err
	}
	if result.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("access token missing in response")
	}
	if result.ExpiresIn <= 0 {
		result.ExpiresIn = 7200
	}

	return AccessToken{
		Value:     result.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// UploadMaterial uploads a file as permanent material, returning the stable
// media handle and, when the platform provides one, a display URL.
func (c *WeChatClient) UploadMaterial(ctx context.Context, path string, mediaType MediaType) (string, string, error) {
	var result struct {
		MediaID string `json:"media_id"`
		URL     string `json:"url"`
	}
	err := c.withAuth(ctx, func(token string) error {
		endpoint := fmt.Sprintf("%s/material/add_material?access_token=%s&type=%s", c.baseURL, url.QueryEscape(token), mediaType)
		body, err := c.postFile(ctx, endpoint, path, mediaType)
		if err != nil {
			return err
		}
		return decodeResponse(body, &result)
	})
	if err != nil {
		return "", "", err
	}
	if result.MediaID == "" {
		return "", "", fmt.Errorf("media_id missing in upload response")
	}
	return result.MediaID, result.URL, nil
}

// UploadContentImage uploads an image for embedding in article HTML. The
// platform returns only a display URL, no handle.
func (c *WeChatClient) UploadContentImage(ctx context.Context, path string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	err := c.withAuth(ctx, func(token string) error {
		endpoint := fmt.Sprintf("%s/media/uploadimg?access_token=%s", c.baseURL, url.QueryEscape(token))
		body, err := c.postFile(ctx, endpoint, path, TypeImage)
		if err != nil {
			return err
		}
		return decodeResponse(body, &result)
	})
	if err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", fmt.Errorf("url missing in uploadimg response")
	}
	return result.URL, nil
}

// ListDrafts pages through existing drafts and returns one entry per article
// title found. Content bodies are not requested.
func (c *WeChatClient) ListDrafts(ctx context.Context) ([]DraftEntry, error) {
	const pageSize = 20

	var entries []DraftEntry
	for offset := 0; ; offset += pageSize {
		req := map[string]int{"offset": offset, "count": pageSize, "no_content": 1}
		var page struct {
			TotalCount int `json:"total_count"`
			Item       []struct {
				MediaID string `json:"media_id"`
				Content struct {
					NewsItem []struct {
						Title string `json:"title"`
					} `json:"news_item"`
				} `json:"content"`
			} `json:"item"`
		}
		if err := c.postJSON(ctx, "/draft/batchget", req, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Item {
			for _, news := range item.Content.NewsItem {
				entries = append(entries, DraftEntry{MediaID: item.MediaID, Title: news.Title})
			}
		}

		if len(page.Item) < pageSize {
			return entries, nil
		}
	}
}

// AddDraft creates a new draft and returns its media id.
func (c *WeChatClient) AddDraft(ctx context.Context, payload *DraftPayload) (string, error) {
	req := map[string]any{"articles": []*DraftPayload{payload}}
	var result struct {
		MediaID string `json:"media_id"`
	}
	if err := c.postJSON(ctx, "/draft/add", req, &result); err != nil {
		return "", err
	}
	if result.MediaID == "" {
		return "", fmt.Errorf("media_id missing in draft/add response")
	}
	return result.MediaID, nil
}

// UpdateDraft replaces the first article of an existing draft.
func (c *WeChatClient) UpdateDraft(ctx context.Context, draftID string, payload *DraftPayload) error {
	req := map[string]any{"media_id": draftID, "index": 0, "articles": payload}
	return c.postJSON(ctx, "/draft/update", req, nil)
}

// withAuth runs the call with a valid token. On an auth-rejection errcode it
// invalidates the cache and retries exactly once with a fresh token.
func (c *WeChatClient) withAuth(ctx context.Context, call func(token string) error) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	err = call(token)
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || !apiErr.IsAuthError() {
		return err
	}

	c.tokens.Invalidate(token)
	token, terr := c.tokens.Token(ctx)
	if terr != nil {
		return terr
	}
	return call(token)
}

// postJSON sends an authenticated JSON request and decodes the response.
func (c *WeChatClient) postJSON(ctx context.Context, path string, reqBody any, out any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	return c.withAuth(ctx, func(token string) error {
		endpoint := fmt.Sprintf("%s%s?access_token=%s", c.baseURL, path, url.QueryEscape(token))
		body, err := c.doWithRetry(func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return err
		}
		return decodeResponse(body, out)
	})
}

// postFile sends one multipart upload. Video material additionally carries the
// description form field the platform requires.
func (c *WeChatClient) postFile(ctx context.Context, endpoint, path string, mediaType MediaType) ([]byte, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading media file: %w", err)
	}

	return c.doWithRetry(func() (*http.Request, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("media", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(file); err != nil {
			return nil, err
		}
		if mediaType == TypeVideo {
			title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			desc, _ := json.Marshal(map[string]string{"title": title, "introduction": ""})
			if err := writer.WriteField("description", string(desc)); err != nil {
				return nil, err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	})
}

// doWithRetry issues the request, retrying transient failures (network
// errors, 429, 5xx) with linear backoff. Non-transient HTTP failures return
// immediately.
func (c *WeChatClient) doWithRetry(makeReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for i := 0; i < c.retries; i++ {
		if i > 0 {
			time.Sleep(c.backoff * time.Duration(i))
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.Path}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.Path}
		}

		return body, nil
	}
	return nil, fmt.Errorf("exceeded max retries: %w", lastErr)
}

// decodeResponse surfaces platform errcodes before decoding the payload.
func decodeResponse(body []byte, out any) error {
	var probe APIError
	if err := json.Unmarshal(body, &probe); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if probe.Code != 0 {
		return &probe
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
