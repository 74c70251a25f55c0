package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase asks the provider's user endpoint about every token.
type Supabase struct {
	url    string
	apiKey string
	client *http.Client
}

// NewSupabase returns a gateway for the project at url. apiKey is the anon key.
func NewSupabase(url, apiKey string, client *http.Client) *Supabase {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	return &Supabase{url: strings.TrimRight(url, "/"), apiKey: apiKey, client: client}
}

type supabaseUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
}

// Lookup calls GET /auth/v1/user with token.
func (s *Supabase) Lookup(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/auth/v1/user", http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: provider returned %d", ErrInvalidToken, resp.StatusCode)
	}

	var u supabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: no user id", ErrInvalidToken)
	}

	return &Identity{ID: u.ID, Email: u.Email, Provider: u.AppMetadata.Provider}, nil
}
