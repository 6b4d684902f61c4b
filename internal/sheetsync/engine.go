// Package sheetsync rebuilds the local ledger cache from the inventory sheet.
package sheetsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/metrics"
)

const maxReportedIssues = 10

// Lock keeps full syncs exclusive across requests and processes.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Replayer pushes committed transactions that never reached the sheet.
type Replayer interface {
	ReplicatePending(ctx context.Context) (int, error)
}

// Syncer is the surface the API and cron job depend on.
type Syncer interface {
	FullSync(ctx context.Context) (*Result, error)
	ValidateOnly(ctx context.Context) (*Report, error)
}

// Report summarizes one read of the inventory sheet.
type Report struct {
	TotalRows        int               `json:"totalRows"`
	Accepted         int               `json:"accepted"`
	Rejected         int               `json:"rejected"`
	RejectedByReason map[string]int    `json:"rejectedByReason"`
	Issues           []sheets.RowIssue `json:"issues"`
	WarningCount     int               `json:"warningCount"`
	Warnings         []sheets.RowIssue `json:"warnings"`
	Categories       int               `json:"categories"`
	CategoryError    string            `json:"categoryError,omitempty"`
	Replayed         int               `json:"replayed,omitempty"`
	ReplayError      string            `json:"replayError,omitempty"`
	KeptLocal        []string          `json:"keptLocal,omitempty"`
	CheckedAt        time.Time         `json:"checkedAt"`
}

// Result is a completed full sync.
type Result struct {
	Items  []models.Item `json:"-"`
	Report Report        `json:"report"`
}

type EngineParams struct {
	Gateway sheets.Gateway
	Repo    ledger.Repository
	Lock    Lock
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
	Clock   func() time.Time

	// Replayer is optional. When set, pending replications are retried
	// before each full sync reads the sheet.
	Replayer Replayer
}

type Engine struct {
	gateway  sheets.Gateway
	repo     ledger.Repository
	lock     Lock
	logg     *logger.Logger
	metrics  *metrics.SyncMetrics
	now      func() time.Time
	replayer Replayer
}

var _ Syncer = (*Engine)(nil)

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("sheets gateway required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("sync lock required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		gateway:  params.Gateway,
		repo:     params.Repo,
		lock:     params.Lock,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
		replayer: params.Replayer,
	}, nil
}

// FullSync replaces the cached item table with the validated sheet rows. The
// sheet read and validation finish before any local write, so a failed read
// leaves the cache untouched. Items with transactions the sheet may not show
// yet keep their local row.
func (e *Engine) FullSync(ctx context.Context) (*Result, error) {
	ctx = e.logg.WithField(ctx, "event", "sheets.sync")
	locked, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sync lock")
	}
	if !locked {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a sync is already in progress")
	}
	defer func() {
		if relErr := e.lock.Release(ctx); relErr != nil {
			e.logg.Error(ctx, "failed to release sync lock", relErr)
		}
	}()

	start := time.Now()
	result, err := e.fullSync(ctx)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	e.metrics.ObserveRun(outcome, time.Since(start))
	return result, err
}

func (e *Engine) fullSync(ctx context.Context) (*Result, error) {
	replayed, replayErr := e.replay(ctx)

	readAt := e.now()
	items, report, err := e.read(ctx)
	if err != nil {
		e.logg.Error(ctx, "sheet read failed; cache left untouched", err)
		return nil, err
	}
	report.Replayed = replayed
	if replayErr != nil {
		report.ReplayError = replayErr.Error()
	}

	items, kept, err := e.repo.ReplaceSyncedItems(ctx, items, readAt)
	if err != nil {
		e.logg.Error(ctx, "replace cached items failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace cached items")
	}
	report.KeptLocal = kept
	if len(kept) > 0 {
		e.logg.Warn(e.logg.WithField(ctx, "item_ids", kept), "kept local rows awaiting replication")
	}
	e.metrics.SetItems(len(items))
	for reason, count := range report.RejectedByReason {
		e.metrics.AddRejected(reason, count)
	}

	e.refreshCategories(ctx, report)

	ctx = e.logg.WithFields(ctx, map[string]any{
		"total_rows": report.TotalRows,
		"accepted":   report.Accepted,
		"rejected":   report.Rejected,
		"warnings":   report.WarningCount,
		"categories": report.Categories,
		"kept_local": len(report.KeptLocal),
	})
	e.logg.Info(ctx, "full sync complete")
	return &Result{Items: items, Report: *report}, nil
}

func (e *Engine) replay(ctx context.Context) (int, error) {
	if e.replayer == nil {
		return 0, nil
	}
	n, err := e.replayer.ReplicatePending(ctx)
	if err != nil {
		e.logg.Error(ctx, "pending replication replay failed", err)
	}
	return n, err
}

// ValidateOnly runs the read and validation path without writing anything.
func (e *Engine) ValidateOnly(ctx context.Context) (*Report, error) {
	ctx = e.logg.WithField(ctx, "event", "sheets.validate")
	_, report, err := e.read(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := e.gateway.ListCategories(ctx)
	if err != nil {
		report.CategoryError = err.Error()
	} else {
		report.Categories = len(categories)
	}
	return report, nil
}

func (e *Engine) read(ctx context.Context) ([]models.Item, *Report, error) {
	read, err := e.gateway.ListInventoryRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	report := e.report(read)
	if report.Rejected > 0 {
		e.logg.Warn(e.logg.WithField(ctx, "rejected_by_reason", report.RejectedByReason), "inventory rows rejected")
	}
	return read.Items, report, nil
}

func (e *Engine) report(read *sheets.InventoryRead) *Report {
	byReason := map[string]int{}
	for _, issue := range read.Rejected {
		byReason[reasonKey(issue.Reason)]++
	}
	return &Report{
		TotalRows:        read.TotalRows,
		Accepted:         len(read.Items),
		Rejected:         len(read.Rejected),
		RejectedByReason: byReason,
		Issues:           firstN(read.Rejected, maxReportedIssues),
		WarningCount:     len(read.Warnings),
		Warnings:         firstN(read.Warnings, maxReportedIssues),
		CheckedAt:        e.now(),
	}
}

func (e *Engine) refreshCategories(ctx context.Context, report *Report) {
	categories, err := e.gateway.ListCategories(ctx)
	if err != nil {
		report.CategoryError = err.Error()
		e.logg.Error(ctx, "category refresh skipped", err)
		return
	}
	if err := e.repo.ReplaceCategories(ctx, categories); err != nil {
		report.CategoryError = err.Error()
		e.logg.Error(ctx, "replace cached categories failed", err)
		return
	}
	report.Categories = len(categories)
}

// reasonKey strips the row detail from a rejection so counts group by cause.
func reasonKey(reason string) string {
	for _, known := range []string{sheets.ReasonMissingItemID, sheets.ReasonMissingItemClass, sheets.ReasonDuplicateItemID} {
		if strings.HasPrefix(reason, known) {
			return known
		}
	}
	return reason
}

func firstN(issues []sheets.RowIssue, n int) []sheets.RowIssue {
	if len(issues) > n {
		issues = issues[:n]
	}
	return append([]sheets.RowIssue{}, issues...)
}
