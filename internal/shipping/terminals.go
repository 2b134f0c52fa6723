// Package shipping serves the parcel-locker location directory
// (Omniva and Smartpost terminals) used at checkout.
package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Terminal is one parcel-locker location
type Terminal struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
	Carrier string `json:"carrier"`
}

// Directory caches the terminal list with a time-based expiry. The
// cache is held explicitly on the struct, never in package scope, and
// serves last-known-good data when a refresh fetch fails.
type Directory struct {
	mu         sync.Mutex
	httpClient *http.Client
	url        string
	ttl        time.Duration

	data      []Terminal
	fetchedAt time.Time
}

// NewDirectory creates a terminal directory backed by the carrier
// locations feed at url, cached for ttl.
func NewDirectory(url string, ttl time.Duration) *Directory {
	return &Directory{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		ttl:        ttl,
	}
}

type locationRecord struct {
	ZIP     string `json:"ZIP"`
	Name    string `json:"NAME"`
	Country string `json:"A0_NAME"`
	City    string `json:"A1_NAME"`
	Type    string `json:"TYPE"`
}

// Terminals returns the cached terminal list as of now, refreshing it
// first when stale. carrier filters the result ("" returns all).
func (d *Directory) Terminals(ctx context.Context, now time.Time, carrier string) ([]Terminal, error) {
	if err := d.refreshIfStale(ctx, now); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if carrier == "" {
		out := make([]Terminal, len(d.data))
		copy(out, d.data)
		return out, nil
	}

	var out []Terminal
	for _, t := range d.data {
		if strings.EqualFold(t.Carrier, carrier) {
			out = append(out, t)
		}
	}
	return out, nil
}

// refreshIfStale fetches the feed when the cache is older than the
// TTL. A failed fetch with usable stale data logs and keeps serving
// the stale copy; a failed fetch with an empty cache is an error.
func (d *Directory) refreshIfStale(ctx context.Context, now time.Time) error {
	d.mu.Lock()
	fresh := !d.fetchedAt.IsZero() && now.Sub(d.fetchedAt) < d.ttl
	hasStale := len(d.data) > 0
	d.mu.Unlock()

	if fresh {
		return nil
	}

	terminals, err := d.fetch(ctx)
	if err != nil {
		util.TerminalCacheRefreshTotal.WithLabelValues("error").Inc()
		if hasStale {
			util.GetLogger().Warn("Terminal feed refresh failed, serving stale data", zap.Error(err))
			return nil
		}
		return fmt.Errorf("terminal feed unavailable and no cached data: %w", err)
	}

	util.TerminalCacheRefreshTotal.WithLabelValues("ok").Inc()

	d.mu.Lock()
	d.data = terminals
	d.fetchedAt = now
	d.mu.Unlock()
	return nil
}

func (d *Directory) fetch(ctx context.Context) ([]Terminal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("terminal feed returned %d", resp.StatusCode)
	}

	var records []locationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("malformed terminal feed: %w", err)
	}

	terminals := make([]Terminal, 0, len(records))
	for _, rec := range records {
		// TYPE 0 is a parcel terminal; other types are post offices
		if rec.Type != "0" {
			continue
		}
		terminals = append(terminals, Terminal{
			ID:      rec.ZIP,
			Name:    rec.Name,
			City:    rec.City,
			Country: rec.Country,
			Carrier: carrierForName(rec.Name),
		})
	}
	return terminals, nil
}

func carrierForName(name string) string {
	if strings.Contains(strings.ToLower(name), "smartpost") {
		return "smartpost"
	}
	return "omniva"
}
