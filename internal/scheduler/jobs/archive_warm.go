package jobs

import (
	"context"
	"time"

	"github.com/aruanc/sentinela/internal/external/cvm"
	"github.com/aruanc/sentinela/pkg/logger"
)

// ArchiveFetcher is the slice of the CVM client this job needs
type ArchiveFetcher interface {
	EnsureArchive(ctx context.Context, docType cvm.DocType, year int) (string, error)
}

// ArchiveWarmJob pre-downloads the current year's bulk disclosure
// archives. The files are hundreds of megabytes; fetching them off the
// request path keeps first investigations fast.
type ArchiveWarmJob struct {
	client ArchiveFetcher
	logger *logger.Logger
	now    func() time.Time
}

// NewArchiveWarmJob creates a new archive warm job
func NewArchiveWarmJob(client ArchiveFetcher, log *logger.Logger) *ArchiveWarmJob {
	return &ArchiveWarmJob{client: client, logger: log, now: time.Now}
}

// Name returns the job name
func (j *ArchiveWarmJob) Name() string {
	return "archive_warm"
}

// Schedule runs daily at 03:00, after the portal's nightly refresh
func (j *ArchiveWarmJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run downloads any stale archive for the current year. A partial failure
// warms the rest and reports the last error.
func (j *ArchiveWarmJob) Run(ctx context.Context) error {
	year := j.now().Year()
	var lastErr error

	for _, docType := range []cvm.DocType{cvm.DocDFP, cvm.DocITR, cvm.DocFRE, cvm.DocIPE} {
		path, err := j.client.EnsureArchive(ctx, docType, year)
		if err != nil {
			j.logger.WithError(err).WithFields(map[string]interface{}{
				"doc_type": docType,
				"year":     year,
			}).Warn("Archive warm failed")
			lastErr = err
			continue
		}
		j.logger.WithFields(map[string]interface{}{
			"doc_type": docType,
			"year":     year,
			"path":     path,
		}).Debug("Archive warmed")
	}

	return lastErr
}
