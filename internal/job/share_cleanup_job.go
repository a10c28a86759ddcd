package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/pkg/timeutil"
)

type shareCleaner interface {
	ClearSharesOfDeleted(ctx context.Context, mtime int64) (int64, error)
}

// ShareCleanupJob revokes the share links of soft-deleted documents so a
// deleted document stops being publicly readable.
type ShareCleanupJob struct {
	docs shareCleaner
	now  func() int64
}

func NewShareCleanupJob(docs shareCleaner) *ShareCleanupJob {
	return &ShareCleanupJob{docs: docs, now: timeutil.NowUnix}
}

func (j *ShareCleanupJob) Name() string {
	return "share_cleanup"
}

func (j *ShareCleanupJob) Run(ctx context.Context) error {
	if j.docs == nil {
		return nil
	}
	cleared, err := j.docs.ClearSharesOfDeleted(ctx, j.now())
	if err != nil {
		return err
	}
	if cleared > 0 {
		logutil.GetLogger(ctx).Info("revoked shares of deleted documents", zap.Int64("count", cleared))
	}
	return nil
}
