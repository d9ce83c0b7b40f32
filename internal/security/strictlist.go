package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"solana-survival-agent/internal/observability"
)

// StrictList is a cached copy of the curated verified-asset list.
type StrictList struct {
	url    string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	members   map[string]struct{}
	fetchedAt time.Time
}

// NewStrictList creates a list fetched from url and cached for ttl.
func NewStrictList(url string, ttl, timeout time.Duration) *StrictList {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StrictList{
		url:    url,
		client: &http.Client{Timeout: timeout},
		ttl:    ttl,
		now:    time.Now,
	}
}

// Contains reports whether address is on the list. Fetches are serialized;
// a failed refresh keeps serving a previously fetched copy when there is one.
func (l *StrictList) Contains(ctx context.Context, address string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.members == nil || l.now().Sub(l.fetchedAt) >= l.ttl {
		members, err := l.fetch(ctx)
		if err != nil {
			if l.members == nil {
				return false, err
			}
		} else {
			l.members = members
			l.fetchedAt = l.now()
		}
	}
	_, ok := l.members[address]
	return ok, nil
}

func (l *StrictList) fetch(ctx context.Context) (members map[string]struct{}, err error) {
	start := time.Now()
	defer func() { observability.RecordExternalCall("strict_list", time.Since(start).Seconds(), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strict list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("strict list status %d", resp.StatusCode)
	}

	var tokens []struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode strict list: %w", err)
	}

	members = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t.Address != "" {
			members[t.Address] = struct{}{}
		}
	}
	return members, nil
}
