// Package transactions runs checkout and check-in against the local ledger and
// replicates committed transactions to the inventory sheet.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/metrics"
)

// Per-item failure messages returned to the caller.
const (
	MsgItemIDRequired   = "Item ID required"
	MsgItemNotFound     = "Item not found"
	MsgItemNotAvailable = "Item not available"
	MsgItemRemoved      = "Item has been removed from inventory"
	MsgUpdateFailed     = "Failed to update item"
)

// DefaultReplayAfter is how old a pending transaction must be before a
// replay picks it up. Younger ones belong to the request that committed them.
const DefaultReplayAfter = time.Minute

// DefaultBulkCount is how many items the diagnostics bulk operations touch
// when the caller does not say.
const DefaultBulkCount = 95

const (
	bulkScoutName   = "Bulk Test"
	bulkOutingName  = "Bulk Test Outing"
	bulkProcessedBy = "test-bulk"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service processes checkout and check-in batches.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*BatchResult, error)
	Checkin(ctx context.Context, input CheckinInput) (*BatchResult, error)
	// Replicate writes the committed part of a batch to the sheet. A failure
	// never undoes the local commit.
	Replicate(ctx context.Context, batch *BatchResult) error
	// ReplicatePending retries replication for committed transactions that
	// never fully reached the sheet and returns how many it covered.
	ReplicatePending(ctx context.Context) (int, error)
	BulkCheckout(ctx context.Context, count int) (*BatchResult, error)
	BulkCheckin(ctx context.Context, count int) (*BatchResult, error)
}

type CheckoutInput struct {
	ItemIDs     []string
	ScoutName   string
	OutingName  string
	ProcessedBy string
	Notes       string
}

// CheckinInput pairs ItemIDs with Conditions by position. Missing conditions
// default to Usable.
type CheckinInput struct {
	ItemIDs     []string
	Conditions  []string
	ProcessedBy string
	Notes       string
}

type ItemResult struct {
	ItemID        string `json:"itemId"`
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchResult is the per-item breakdown of one checkout or check-in call.
type BatchResult struct {
	Action  enums.TransactionAction `json:"action"`
	Results []ItemResult            `json:"results"`
	Summary Summary                 `json:"summary"`

	committed []committed
}

// Committed returns the transactions written locally by this batch.
func (b *BatchResult) Committed() []models.Transaction {
	out := make([]models.Transaction, 0, len(b.committed))
	for _, c := range b.committed {
		out = append(out, c.tx)
	}
	return out
}

type committed struct {
	item models.Item
	tx   models.Transaction
}

func newBatch(action enums.TransactionAction) *BatchResult {
	return &BatchResult{Action: action, Results: []ItemResult{}}
}

func (b *BatchResult) add(result ItemResult, c *committed) {
	b.Results = append(b.Results, result)
	b.Summary.Total++
	if result.Success {
		b.Summary.Succeeded++
	} else {
		b.Summary.Failed++
	}
	if c != nil {
		b.committed = append(b.committed, *c)
	}
}

type ServiceParams struct {
	Tx      txRunner
	Repo    ledger.Repository
	Gateway sheets.Gateway
	Logger  *logger.Logger
	Metrics *metrics.TransactionMetrics
	Clock   func() time.Time
	NewID   func() string

	// ReplayAfter defaults to DefaultReplayAfter.
	ReplayAfter time.Duration
}

type service struct {
	tx          txRunner
	repo        ledger.Repository
	gateway     sheets.Gateway
	logg        *logger.Logger
	metrics     *metrics.TransactionMetrics
	now         func() time.Time
	newID       func() string
	replayAfter time.Duration
}

// NewService builds the transaction processor.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("sheets gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := params.NewID
	if newID == nil {
		newID = NewTransactionID
	}
	replayAfter := params.ReplayAfter
	if replayAfter <= 0 {
		replayAfter = DefaultReplayAfter
	}
	return &service{
		tx:          params.Tx,
		repo:        params.Repo,
		gateway:     params.Gateway,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         now,
		newID:       newID,
		replayAfter: replayAfter,
	}, nil
}

// NewTransactionID returns a time-ordered transaction id.
func NewTransactionID() string {
	return "TXN-" + uuid.Must(uuid.NewV7()).String()
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*BatchResult, error) {
	input.ScoutName = strings.TrimSpace(input.ScoutName)
	input.OutingName = strings.TrimSpace(input.OutingName)
	input.ProcessedBy = strings.TrimSpace(input.ProcessedBy)
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOuting(ctx, input.OutingName)
	batch := newBatch(enums.TransactionActionCheckOut)
	for _, raw := range input.ItemIDs {
		result, c := s.checkoutItem(ctx, strings.TrimSpace(raw), input)
		s.metrics.IncResult(batch.Action.String(), result.Success)
		batch.add(result, c)
	}
	s.logBatch(ctx, batch)
	return batch, nil
}

func (s *service) checkoutItem(ctx context.Context, itemID string, input CheckoutInput) (ItemResult, *committed) {
	result := ItemResult{ItemID: itemID}
	if itemID == "" {
		result.Error = MsgItemIDRequired
		return result, nil
	}
	ctx = s.logg.WithItemID(ctx, itemID)
	now := s.now()

	var out committed
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsAvailable() {
			return errNotAvailable
		}
		patch := ledger.StatusPatch{
			Status:       enums.ItemStatusCheckedOut,
			Condition:    item.Condition,
			CheckedOutTo: input.ScoutName,
			CheckedOutBy: input.ProcessedBy,
			CheckOutDate: sheets.CheckOutDate(now),
			OutingName:   input.OutingName,
			UpdatedAt:    now,
		}
		ok, err := repo.SetItemStatus(ctx, itemID, patch, ledger.GuardAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return errNotAvailable
		}
		txn := models.Transaction{
			TransactionID: s.newID(),
			Timestamp:     now,
			Action:        enums.TransactionActionCheckOut,
			ItemID:        item.ItemID,
			OutingName:    input.OutingName,
			Condition:     item.Condition.String(),
			ProcessedBy:   input.ProcessedBy,
			Notes:         input.Notes,
		}
		if err := repo.AppendTransaction(ctx, &txn); err != nil {
			return err
		}
		applyPatch(item, patch)
		out = committed{item: *item, tx: txn}
		return nil
	})
	if err != nil {
		result.Error = s.itemError(ctx, err)
		return result, nil
	}
	result.Success = true
	result.TransactionID = out.tx.TransactionID
	return result, &out
}

func (s *service) Checkin(ctx context.Context, input CheckinInput) (*BatchResult, error) {
	input.ProcessedBy = strings.TrimSpace(input.ProcessedBy)
	if len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemIds required")
	}
	if input.ProcessedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "processedBy required")
	}

	batch := newBatch(enums.TransactionActionCheckIn)
	for i, raw := range input.ItemIDs {
		condition := ""
		if i < len(input.Conditions) {
			condition = input.Conditions[i]
		}
		result, c := s.checkinItem(ctx, strings.TrimSpace(raw), condition, input)
		s.metrics.IncResult(batch.Action.String(), result.Success)
		batch.add(result, c)
	}
	s.logBatch(ctx, batch)
	return batch, nil
}

func (s *service) checkinItem(ctx context.Context, itemID, rawCondition string, input CheckinInput) (ItemResult, *committed) {
	result := ItemResult{ItemID: itemID}
	if itemID == "" {
		result.Error = MsgItemIDRequired
		return result, nil
	}
	reported, err := enums.ParseReportedCondition(rawCondition)
	if err != nil {
		result.Error = fmt.Sprintf("Invalid condition %q", rawCondition)
		return result, nil
	}
	ctx = s.logg.WithItemID(ctx, itemID)
	now := s.now()

	var out committed
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status.IsTerminal() {
			return errRemoved
		}
		patch := checkinPatch(reported, now)
		ok, err := repo.SetItemStatus(ctx, itemID, patch, ledger.GuardNotRemoved)
		if err != nil {
			return err
		}
		if !ok {
			return errRemoved
		}
		txn := models.Transaction{
			TransactionID: s.newID(),
			Timestamp:     now,
			Action:        enums.TransactionActionCheckIn,
			ItemID:        item.ItemID,
			OutingName:    item.OutingName,
			Condition:     reported.String(),
			ProcessedBy:   input.ProcessedBy,
			Notes:         input.Notes,
		}
		if err := repo.AppendTransaction(ctx, &txn); err != nil {
			return err
		}
		applyPatch(item, patch)
		out = committed{item: *item, tx: txn}
		return nil
	})
	if err != nil {
		result.Error = s.itemError(ctx, err)
		return result, nil
	}
	result.Success = true
	result.TransactionID = out.tx.TransactionID
	return result, &out
}

// checkinPatch returns the item to the shed, or marks it missing, and clears
// every checkout attribute.
func checkinPatch(reported enums.ReportedCondition, now time.Time) ledger.StatusPatch {
	if reported.IsMissing() {
		return ledger.StatusPatch{
			Status:    enums.ItemStatusMissing,
			Condition: enums.ItemConditionUnknown,
			UpdatedAt: now,
		}
	}
	return ledger.StatusPatch{
		Status:    enums.ItemStatusInShed,
		Condition: enums.ItemCondition(reported),
		UpdatedAt: now,
	}
}

func (s *service) Replicate(ctx context.Context, batch *BatchResult) error {
	if batch == nil || len(batch.committed) == 0 {
		return nil
	}
	txs := make([]models.Transaction, 0, len(batch.committed))
	patches := make([]sheets.ItemPatch, 0, len(batch.committed))
	ids := make([]string, 0, len(batch.committed))
	for _, c := range batch.committed {
		txs = append(txs, c.tx)
		patches = append(patches, sheets.StatusPatch(c.item))
		ids = append(ids, c.tx.TransactionID)
	}

	errs := s.replicate(ctx, txs, patches, ids)
	if errs != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"action":          batch.Action.String(),
			"transaction_ids": ids,
		})
		s.logg.Error(logCtx, "sheet replication failed; local commit kept", errs)
	}
	return errs
}

func (s *service) ReplicatePending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPendingTransactions(ctx, s.now().Add(-s.replayAfter))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending transactions")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var (
		unlogged []models.Transaction
		ids      = make([]string, 0, len(pending))
		patches  []sheets.ItemPatch
		seen     = map[string]bool{}
		errs     error
	)
	for _, txn := range pending {
		ids = append(ids, txn.TransactionID)
		if txn.SheetLoggedAt == nil {
			unlogged = append(unlogged, txn)
		}
		if seen[txn.ItemID] {
			continue
		}
		seen[txn.ItemID] = true
		// The current local row carries every later transaction too.
		item, err := s.repo.GetItemByID(ctx, txn.ItemID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			continue
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("load item %s: %w", txn.ItemID, err))
			continue
		}
		patches = append(patches, sheets.StatusPatch(*item))
	}
	if errs != nil {
		return len(pending), errs
	}

	errs = s.replicate(ctx, unlogged, patches, ids)
	ctx = s.logg.WithFields(ctx, map[string]any{"pending": len(pending), "transaction_ids": ids})
	if errs != nil {
		s.logg.Error(ctx, "pending replication failed", errs)
		return len(pending), errs
	}
	s.logg.Info(ctx, "pending transactions replicated")
	return len(pending), nil
}

// replicate appends txs, patches the inventory rows and records how far it
// got. ids are marked replicated only when both sheet writes succeed.
func (s *service) replicate(ctx context.Context, txs []models.Transaction, patches []sheets.ItemPatch, ids []string) error {
	var errs error
	logged := true
	if len(txs) > 0 {
		if err := s.gateway.AppendTransactionRows(ctx, txs...); err != nil {
			s.metrics.IncReplicationFailure("transactions")
			errs = multierr.Append(errs, fmt.Errorf("append transaction rows: %w", err))
			logged = false
		} else if err := s.repo.MarkTransactionsLogged(ctx, txIDs(txs), s.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark transactions logged: %w", err))
		}
	}
	patched := true
	if len(patches) > 0 {
		if err := s.gateway.UpdateInventoryRows(ctx, patches...); err != nil {
			s.metrics.IncReplicationFailure("inventory")
			errs = multierr.Append(errs, fmt.Errorf("update inventory rows: %w", err))
			patched = false
		}
	}
	if logged && patched {
		if err := s.repo.MarkTransactionsReplicated(ctx, ids, s.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark transactions replicated: %w", err))
		}
	}
	return errs
}

func (s *service) BulkCheckout(ctx context.Context, count int) (*BatchResult, error) {
	items, err := s.repo.ListAvailableItems(ctx, bulkCount(count))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available items")
	}
	if len(items) == 0 {
		return newBatch(enums.TransactionActionCheckOut), nil
	}
	return s.Checkout(ctx, CheckoutInput{
		ItemIDs:     itemIDs(items),
		ScoutName:   bulkScoutName,
		OutingName:  bulkOutingName,
		ProcessedBy: bulkProcessedBy,
		Notes:       "bulk checkout test",
	})
}

func (s *service) BulkCheckin(ctx context.Context, count int) (*BatchResult, error) {
	items, err := s.repo.ListCheckedOutItems(ctx, bulkCount(count))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list checked out items")
	}
	if len(items) == 0 {
		return newBatch(enums.TransactionActionCheckIn), nil
	}
	return s.Checkin(ctx, CheckinInput{
		ItemIDs:     itemIDs(items),
		ProcessedBy: bulkProcessedBy,
		Notes:       "bulk checkin test",
	})
}

var (
	errNotAvailable = pkgerrors.New(pkgerrors.CodeStateConflict, MsgItemNotAvailable)
	errRemoved      = pkgerrors.New(pkgerrors.CodeStateConflict, MsgItemRemoved)
)

// itemError maps a per-item failure onto the message returned to the caller.
// Store failures are logged and reported generically.
func (s *service) itemError(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return MsgItemNotFound
	case errors.Is(err, errNotAvailable):
		return MsgItemNotAvailable
	case errors.Is(err, errRemoved):
		return MsgItemRemoved
	}
	s.logg.Error(ctx, "item transaction failed", err)
	return MsgUpdateFailed
}

func (s *service) logBatch(ctx context.Context, batch *BatchResult) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"action":    batch.Action.String(),
		"total":     batch.Summary.Total,
		"succeeded": batch.Summary.Succeeded,
		"failed":    batch.Summary.Failed,
	})
	if batch.Summary.Failed > 0 {
		s.logg.Warn(ctx, "transaction batch completed with failures")
		return
	}
	s.logg.Info(ctx, "transaction batch completed")
}

func validateCheckout(input CheckoutInput) error {
	switch {
	case len(input.ItemIDs) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "itemIds required")
	case input.ScoutName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "scoutName required")
	case input.OutingName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "outingName required")
	case input.ProcessedBy == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "processedBy required")
	}
	return nil
}

func applyPatch(item *models.Item, patch ledger.StatusPatch) {
	item.Status = patch.Status
	item.Condition = patch.Condition
	item.CheckedOutTo = patch.CheckedOutTo
	item.CheckedOutBy = patch.CheckedOutBy
	item.CheckOutDate = patch.CheckOutDate
	item.OutingName = patch.OutingName
	item.LastUpdated = patch.UpdatedAt
}

func bulkCount(count int) int {
	if count <= 0 {
		return DefaultBulkCount
	}
	return count
}

func txIDs(txs []models.Transaction) []string {
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.TransactionID)
	}
	return ids
}

func itemIDs(items []models.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	return ids
}
