package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/external/cvm"
	"github.com/aruanc/sentinela/pkg/logger"
)

type stubFX struct {
	rate  contracts.FXRate
	err   error
	calls int
}

func (s *stubFX) Rate(context.Context) (contracts.FXRate, error) {
	s.calls++
	if s.err != nil {
		return contracts.FXRate{}, s.err
	}
	return s.rate, nil
}

type stubArchives struct {
	failFor map[cvm.DocType]error
	seen    []cvm.DocType
	years   []int
}

func (s *stubArchives) EnsureArchive(_ context.Context, docType cvm.DocType, year int) (string, error) {
	s.seen = append(s.seen, docType)
	s.years = append(s.years, year)
	if err := s.failFor[docType]; err != nil {
		return "", err
	}
	return "/tmp/cvm/" + string(docType), nil
}

func TestFXWarmJob(t *testing.T) {
	fx := &stubFX{rate: contracts.FXRate{Rate: 5.0, Source: "PTAX"}}
	job := NewFXWarmJob(fx, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, fx.calls)
	assert.Equal(t, "fx_warm", job.Name())
}

func TestFXWarmJob_PropagatesError(t *testing.T) {
	job := NewFXWarmJob(&stubFX{err: errors.New("no quote in window")}, logger.NewNop())
	assert.Error(t, job.Run(context.Background()))
}

func TestArchiveWarmJob_WarmsAllTypes(t *testing.T) {
	archives := &stubArchives{}
	job := NewArchiveWarmJob(archives, logger.NewNop())
	job.now = func() time.Time { return time.Date(2025, 8, 31, 3, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []cvm.DocType{cvm.DocDFP, cvm.DocITR, cvm.DocFRE, cvm.DocIPE}, archives.seen)
	for _, y := range archives.years {
		assert.Equal(t, 2025, y)
	}
}

func TestArchiveWarmJob_PartialFailureWarmsRest(t *testing.T) {
	archives := &stubArchives{failFor: map[cvm.DocType]error{
		cvm.DocITR: errors.New("unexpected status code: 503"),
	}}
	job := NewArchiveWarmJob(archives, logger.NewNop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, archives.seen, 4, "failure on one type does not stop the others")
}
