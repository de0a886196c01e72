package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase stores objects in a Supabase Storage bucket over its HTTP API.
type Supabase struct {
	BaseURL   string
	SecretKey string // service_role key; the anon key cannot write
	Bucket    string
	Client    *http.Client
}

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// NewSupabase returns a store with its own HTTP client.
func NewSupabase(baseURL, secretKey, bucket string) *Supabase {
	return &Supabase{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		Bucket:    bucket,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// client never writes to s: one store serves concurrent requests.
func (s *Supabase) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return defaultClient
}

func (s *Supabase) objectURL(name string) (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if s.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(s.BaseURL, "/")
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", base, s.Bucket, strings.TrimLeft(name, "/")), nil
}

func (s *Supabase) do(ctx context.Context, method, url string, body []byte, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// Same headers as supabase-js: apikey and Bearer carry the same key
	req.Header.Set("apikey", s.SecretKey)
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	return resp, nil
}

func (s *Supabase) Store(ctx context.Context, data []byte, name string) (string, error) {
	url, err := s.objectURL(name)
	if err != nil {
		return "", err
	}
	resp, err := s.do(ctx, http.MethodPost, url, data, http.DetectContentType(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("supabase upload %s: status %d: %s", name, resp.StatusCode, string(respBody))
	}
	return name, nil
}

func (s *Supabase) Delete(ctx context.Context, ref string) error {
	url, err := s.objectURL(ref)
	if err != nil {
		return err
	}
	resp, err := s.do(ctx, http.MethodDelete, url, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase delete %s: status %d: %s", ref, resp.StatusCode, string(respBody))
	}
	return nil
}
