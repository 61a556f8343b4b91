package bcb

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/pkg/logger"
)

type stubFetcher struct {
	bulletins []Bulletin
	err       error
	calls     atomic.Int32
	delay     time.Duration
}

func (s *stubFetcher) FetchBulletins(ctx context.Context, start, end time.Time) ([]Bulletin, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.bulletins, s.err
}

func TestSelectBulletin_PrefersClosing(t *testing.T) {
	bulletins := []Bulletin{
		{SellRate: 5.10, Timestamp: "2025-08-29 13:09:02.332", Type: "Fechamento"},
		{SellRate: 5.30, Timestamp: "2025-08-29 16:00:00.000", Type: "Intermediário"},
		{SellRate: 5.05, Timestamp: "2025-08-28 13:09:01.100", Type: "Fechamento"},
	}

	best, ok := SelectBulletin(bulletins)
	require.True(t, ok)
	assert.Equal(t, 5.10, best.SellRate)
	assert.Equal(t, "Fechamento", best.Type)
}

func TestSelectBulletin_FallsBackToAnyValidSellRate(t *testing.T) {
	bulletins := []Bulletin{
		{SellRate: 5.30, Timestamp: "2025-08-29 10:00:00.000", Type: "Abertura"},
		{SellRate: 5.31, Timestamp: "2025-08-29 11:00:00.000", Type: "Intermediário"},
	}

	best, ok := SelectBulletin(bulletins)
	require.True(t, ok)
	assert.Equal(t, 5.31, best.SellRate)
}

func TestSelectBulletin_RejectsInvalid(t *testing.T) {
	_, ok := SelectBulletin(nil)
	assert.False(t, ok)

	_, ok = SelectBulletin([]Bulletin{
		{SellRate: 0, Timestamp: "2025-08-29 13:00:00.000", Type: "Fechamento"},
		{SellRate: -1, Timestamp: "2025-08-29 13:00:00.000", Type: "Fechamento"},
		{SellRate: 5.1, Timestamp: "garbage", Type: "Fechamento"},
	})
	assert.False(t, ok)
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{bulletins: []Bulletin{
		{SellRate: 5.20, Timestamp: "2025-08-29 13:09:02.332", Type: "Fechamento"},
	}}

	r := NewResolver(fetcher, 6*time.Hour, logger.NewNop())

	first, err := r.Rate(context.Background())
	require.NoError(t, err)
	second, err := r.Rate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, "bcb/ptax", first.Source)
	assert.Equal(t, 5.20, first.Rate)
}

func TestResolver_ExpiresByClock(t *testing.T) {
	fetcher := &stubFetcher{bulletins: []Bulletin{
		{SellRate: 5.20, Timestamp: "2025-08-29 13:09:02.332", Type: "Fechamento"},
	}}

	current := time.Now()
	r := NewResolver(fetcher, 6*time.Hour, logger.NewNop()).WithClock(func() time.Time { return current })

	_, err := r.Rate(context.Background())
	require.NoError(t, err)

	current = current.Add(7 * time.Hour)
	_, err = r.Rate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestResolver_SharesPendingFetch(t *testing.T) {
	fetcher := &stubFetcher{
		bulletins: []Bulletin{{SellRate: 5.20, Timestamp: "2025-08-29 13:09:02.332", Type: "Fechamento"}},
		delay:     50 * time.Millisecond,
	}

	r := NewResolver(fetcher, 6*time.Hour, logger.NewNop())

	var wg sync.WaitGroup
	rates := make([]contracts.FXRate, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rate, err := r.Rate(context.Background())
			require.NoError(t, err)
			rates[i] = rate
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load(), "concurrent callers must share one fetch")
	for _, rate := range rates[1:] {
		assert.Equal(t, rates[0], rate)
	}
}

func TestResolver_PendingClearsAfterFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("boom")}

	r := NewResolver(fetcher, 6*time.Hour, logger.NewNop())

	_, err := r.Rate(context.Background())
	require.Error(t, err)

	// A later call must start a fresh fetch instead of reusing the failed one.
	fetcher.err = nil
	fetcher.bulletins = []Bulletin{{SellRate: 5.20, Timestamp: "2025-08-29 13:09:02.332", Type: "Fechamento"}}

	rate, err := r.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.20, rate.Rate)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestResolver_NoValidBulletin(t *testing.T) {
	fetcher := &stubFetcher{}

	r := NewResolver(fetcher, 6*time.Hour, logger.NewNop())

	_, err := r.Rate(context.Background())
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestConvertFields(t *testing.T) {
	st := contracts.NewStatement()
	st.Period = "2025-06-30"
	st.Fields["total_revenue"] = 500
	st.Fields["net_income"] = math.NaN()

	out := ConvertFields(st, 5.0)

	assert.Equal(t, 100.0, out.Fields["total_revenue_usd"])
	_, hasNaNSibling := out.Fields["net_income_usd"]
	assert.False(t, hasNaNSibling, "non-finite inputs are skipped")

	// Source record untouched.
	_, mutated := st.Fields["total_revenue_usd"]
	assert.False(t, mutated)
}

func TestConvertFields_InvalidRate(t *testing.T) {
	st := contracts.NewStatement()
	st.Fields["total_revenue"] = 500

	out := ConvertFields(st, 0)
	_, ok := out.Fields["total_revenue_usd"]
	assert.False(t, ok)
}
