package bcb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/pkg/logger"
)

// ErrNoQuote is returned when the lookup window holds no valid bulletin.
var ErrNoQuote = errors.New("bcb: no valid PTAX bulletin in window")

// windowDays is the rolling calendar window the resolver looks back over.
// Ten days absorbs weekends and holiday clusters with no published quote.
const windowDays = 10

// BulletinFetcher is the slice of Client the resolver needs
type BulletinFetcher interface {
	FetchBulletins(ctx context.Context, start, end time.Time) ([]Bulletin, error)
}

// Resolver caches the latest official rate process-wide. Concurrent callers
// during a fetch-in-progress share one pending operation; the pending marker
// clears when the fetch settles, success or not.
type Resolver struct {
	client BulletinFetcher
	logger *logger.Logger
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    *contracts.FXRate
	fetchedAt time.Time
	pending   chan struct{}
	lastErr   error
}

// NewResolver creates a resolver with a 6h cache TTL by default
func NewResolver(client BulletinFetcher, ttl time.Duration, log *logger.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Resolver{
		client: client,
		logger: log.WithField("provider", "bcb"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the clock. Test helper.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Rate returns the cached official rate, fetching when expired. All callers
// inside one validity window observe the identical value.
func (r *Resolver) Rate(ctx context.Context) (contracts.FXRate, error) {
	r.mu.Lock()
	if r.cached != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		rate := *r.cached
		r.mu.Unlock()
		return rate, nil
	}

	if r.pending == nil {
		r.pending = make(chan struct{})
		go r.refresh(r.pending)
	}
	wait := r.pending
	r.mu.Unlock()

	select {
	case <-wait:
	case <-ctx.Done():
		return contracts.FXRate{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		return *r.cached, nil
	}
	if r.lastErr != nil {
		return contracts.FXRate{}, r.lastErr
	}
	return contracts.FXRate{}, ErrNoQuote
}

// refresh performs the actual fetch and publishes the outcome. It owns the
// pending channel it was handed and clears the marker regardless of outcome.
func (r *Resolver) refresh(done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	rate, err := r.resolve(ctx)

	r.mu.Lock()
	if err == nil {
		r.cached = &rate
		r.fetchedAt = r.now()
		r.lastErr = nil
	} else {
		r.lastErr = err
		r.logger.WithError(err).Warn("PTAX refresh failed")
	}
	if r.pending == done {
		r.pending = nil
	}
	r.mu.Unlock()
	close(done)
}

// resolve fetches the window and applies the selection rule: prefer closing
// bulletins; else any bulletin carrying a valid sell rate; most recent wins.
func (r *Resolver) resolve(ctx context.Context) (contracts.FXRate, error) {
	end := r.now()
	start := end.AddDate(0, 0, -(windowDays - 1))

	bulletins, err := r.client.FetchBulletins(ctx, start, end)
	if err != nil {
		return contracts.FXRate{}, err
	}

	best, ok := SelectBulletin(bulletins)
	if !ok {
		return contracts.FXRate{}, ErrNoQuote
	}

	ts, _ := best.ParsedTime()
	rate := contracts.FXRate{
		Rate:      best.SellRate,
		Timestamp: ts,
		Source:    "bcb/ptax",
	}

	r.logger.WithFields(map[string]interface{}{
		"rate":      rate.Rate,
		"timestamp": best.Timestamp,
		"type":      best.Type,
	}).Info("Resolved PTAX rate")

	return rate, nil
}

// SelectBulletin picks the bulletin the resolver should use, or false when
// none qualifies.
func SelectBulletin(bulletins []Bulletin) (Bulletin, bool) {
	valid := func(b Bulletin) bool {
		if !(b.SellRate > 0) || math.IsInf(b.SellRate, 0) {
			return false
		}
		_, ok := b.ParsedTime()
		return ok
	}

	var candidates []Bulletin
	for _, b := range bulletins {
		if valid(b) && b.Type == "Fechamento" {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		for _, b := range bulletins {
			if valid(b) {
				candidates = append(candidates, b)
			}
		}
	}
	if len(candidates) == 0 {
		return Bulletin{}, false
	}

	best := candidates[0]
	bestTime, _ := best.ParsedTime()
	for _, b := range candidates[1:] {
		ts, _ := b.ParsedTime()
		if ts.After(bestTime) {
			best = b
			bestTime = ts
		}
	}
	return best, true
}

// Convert converts a BRL value to USD with the given rate
func Convert(value, rate float64) (float64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("bcb: invalid rate %v", rate)
	}
	return value / rate, nil
}

// ConvertFields returns a copy of the statement with sibling "_usd" fields
// for every finite numeric field. The source record is never mutated.
func ConvertFields(st contracts.Statement, rate float64) contracts.Statement {
	out := st.Clone()
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return out
	}
	for name, value := range st.Fields {
		if strings.HasSuffix(name, "_usd") {
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		usdName := name + "_usd"
		if _, exists := out.Fields[usdName]; exists {
			continue
		}
		out.Fields[usdName] = value / rate
	}
	return out
}
