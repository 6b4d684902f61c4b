package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

const sheetsSyncJobName = "sheets-sync"

// SheetsSyncJob periodically rebuilds the ledger cache from the sheet.
type SheetsSyncJob struct {
	syncer sheetsync.Syncer
	logg   *logger.Logger
}

func NewSheetsSyncJob(syncer sheetsync.Syncer, logg *logger.Logger) (*SheetsSyncJob, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &SheetsSyncJob{syncer: syncer, logg: logg}, nil
}

func (j *SheetsSyncJob) Name() string { return sheetsSyncJobName }

// Run performs one full sync. A sync already running elsewhere is not a
// failure; that run covers this tick.
func (j *SheetsSyncJob) Run(ctx context.Context) error {
	result, err := j.syncer.FullSync(ctx)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			j.logg.Info(ctx, "sync already in progress; skipping")
			return nil
		}
		return err
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"accepted": result.Report.Accepted,
		"rejected": result.Report.Rejected,
	})
	j.logg.Info(ctx, "scheduled sync applied")
	return nil
}
