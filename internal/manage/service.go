// Package manage is the admin surface for inventory items. Every write goes to
// the inventory sheet first and fails fast; the local cache is updated after.
package manage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/pagination"
	"github.com/angelmondragon/gearshed-backend/pkg/types"
)

const (
	maxClassLen       = 5
	maxDescriptionLen = 50
	maxNotesLen       = 200
)

type Service interface {
	List(ctx context.Context) ([]models.Item, error)
	Get(ctx context.Context, itemID string) (*models.Item, error)
	NextItemNum(ctx context.Context, class string) (*NextItemNum, error)
	Add(ctx context.Context, input AddItemInput) (*models.Item, error)
	Update(ctx context.Context, itemID string, input UpdateItemInput) (*models.Item, error)
	Delete(ctx context.Context, itemID string) (*models.Item, error)
	ListTransactions(ctx context.Context, query TransactionQuery) (*types.Page[models.Transaction], error)
}

// NextItemNum is the next unused number in a class.
type NextItemNum struct {
	ItemClass string `json:"itemClass"`
	ItemNum   string `json:"itemNum"`
	ItemID    string `json:"itemId"`
	Warning   string `json:"warning,omitempty"`
}

// AddItemInput describes a new item. ItemNum and ItemID are assigned when
// omitted.
type AddItemInput struct {
	ItemClass    string
	ItemDesc     string
	ItemNum      string
	ItemID       string
	Description  string
	IsTagged     bool
	Condition    string
	Status       string
	PurchaseDate string
	Cost         *decimal.Decimal
	Notes        string
	InApp        *bool
}

// UpdateItemInput changes only the non-nil fields. A zero Cost clears it.
type UpdateItemInput struct {
	ItemDesc     *string
	Description  *string
	IsTagged     *bool
	Condition    *string
	Status       *string
	PurchaseDate *string
	Cost         *decimal.Decimal
	Notes        *string
	InApp        *bool
}

type TransactionQuery struct {
	ItemID string
	Outing string
	Limit  int
	Cursor string
}

type ServiceParams struct {
	Repo    ledger.Repository
	Gateway sheets.Gateway
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	repo    ledger.Repository
	gateway sheets.Gateway
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
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
	return &service{repo: params.Repo, gateway: params.Gateway, logg: params.Logger, now: now}, nil
}

func (s *service) List(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListAllItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.repo.GetItemByID(ctx, strings.TrimSpace(itemID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
	return item, nil
}

func (s *service) NextItemNum(ctx context.Context, class string) (*NextItemNum, error) {
	class, err := normalizeClass(class)
	if err != nil {
		return nil, err
	}
	result := &NextItemNum{ItemClass: class}
	read, err := s.gateway.ListInventoryRows(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "next item number falling back to cache")
		result.Warning = "spreadsheet unavailable; number computed from local cache"
		read = &sheets.InventoryRead{}
	}
	num, err := s.nextNumber(ctx, class, read)
	if err != nil {
		return nil, err
	}
	result.ItemNum = formatItemNum(num)
	result.ItemID = class + "-" + result.ItemNum
	return result, nil
}

// nextNumber is one past the highest number used by class on the sheet or in
// the cache. Soft-deleted items count, so numbers are never reused.
func (s *service) nextNumber(ctx context.Context, class string, read *sheets.InventoryRead) (int, error) {
	ids, err := s.repo.ListItemIDsByClass(ctx, class)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list item ids")
	}
	for _, item := range read.Items {
		ids = append(ids, item.ItemID)
	}
	for _, issue := range read.Rejected {
		ids = append(ids, issue.ItemID)
	}

	prefix := class + "-"
	highest := 0
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(id[len(prefix):]); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func formatItemNum(n int) string {
	return fmt.Sprintf("%03d", n)
}

func (s *service) Add(ctx context.Context, input AddItemInput) (*models.Item, error) {
	item, err := s.newItem(input)
	if err != nil {
		return nil, err
	}

	read, err := s.gateway.ListInventoryRows(ctx)
	if err != nil {
		return nil, err
	}
	if item.ItemID == "" {
		num, err := s.nextNumber(ctx, item.ItemClass, read)
		if err != nil {
			return nil, err
		}
		item.ItemNum = formatItemNum(num)
		item.ItemID = item.ItemClass + "-" + item.ItemNum
	}
	ctx = s.logg.WithItemID(ctx, item.ItemID)
	if err := s.ensureUnused(ctx, item.ItemID, read); err != nil {
		return nil, err
	}
	if item.ItemDesc == "" {
		item.ItemDesc = s.classDesc(ctx, item.ItemClass)
	}

	if err := s.gateway.AddInventoryRow(ctx, *item); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		s.logg.Error(ctx, "cache write after sheet add failed", err)
	}
	s.logg.Info(ctx, "item added")
	return item, nil
}

func (s *service) newItem(input AddItemInput) (*models.Item, error) {
	class, err := normalizeClass(input.ItemClass)
	if err != nil {
		return nil, err
	}
	condition, err := parseCondition(input.Condition)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if status == enums.ItemStatusCheckedOut || status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("new items cannot start as %s", status))
	}
	cost, err := parseCost(input.Cost)
	if err != nil {
		return nil, err
	}
	item := &models.Item{
		ItemClass:    class,
		ItemDesc:     strings.TrimSpace(input.ItemDesc),
		ItemNum:      strings.TrimSpace(input.ItemNum),
		ItemID:       strings.ToUpper(strings.TrimSpace(input.ItemID)),
		Description:  strings.TrimSpace(input.Description),
		IsTagged:     input.IsTagged,
		Condition:    condition,
		Status:       status,
		PurchaseDate: strings.TrimSpace(input.PurchaseDate),
		Cost:         cost,
		Notes:        strings.TrimSpace(input.Notes),
		InApp:        input.InApp == nil || *input.InApp,
		LastUpdated:  s.now(),
	}
	if err := validateText(item.Description, item.Notes); err != nil {
		return nil, err
	}

	switch {
	case item.ItemID == "" && item.ItemNum != "":
		item.ItemID = class + "-" + item.ItemNum
	case item.ItemID != "":
		if !strings.HasPrefix(item.ItemID, class+"-") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemId must start with the item class").
				WithDetails(map[string]any{"field": "itemId"})
		}
		if item.ItemNum == "" {
			item.ItemNum = item.ItemID[len(class)+1:]
		}
	}
	return item, nil
}

func (s *service) ensureUnused(ctx context.Context, itemID string, read *sheets.InventoryRead) error {
	conflict := pkgerrors.New(pkgerrors.CodeConflict, "item id already exists").
		WithDetails(map[string]any{"field": "itemId", "itemId": itemID})
	for _, existing := range read.Items {
		if strings.EqualFold(existing.ItemID, itemID) {
			return conflict
		}
	}
	_, err := s.repo.GetItemByID(ctx, itemID)
	switch {
	case err == nil:
		return conflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check item id")
	}
}

func (s *service) classDesc(ctx context.Context, class string) string {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.logg.Warn(ctx, "category lookup failed")
		return ""
	}
	for _, c := range categories {
		if strings.EqualFold(c.Class, class) {
			return c.ClassDesc
		}
	}
	return ""
}

func (s *service) Update(ctx context.Context, itemID string, input UpdateItemInput) (*models.Item, error) {
	current, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithItemID(ctx, current.ItemID)
	if current.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item has been removed from inventory")
	}

	item := *current
	if err := applyUpdate(&item, input); err != nil {
		return nil, err
	}
	if err := checkEditTransition(current.Status, item.Status); err != nil {
		return nil, err
	}
	if !item.IsCheckedOut() {
		item.ClearCheckout()
	}
	item.LastUpdated = s.now()

	if err := s.gateway.UpdateInventoryRow(ctx, sheets.EditPatch(item)); err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateItemIfStatus(ctx, &item, current.Status)
	if err != nil {
		s.logg.Error(ctx, "cache write after sheet update failed", err)
	} else if !ok {
		return nil, s.editRaced(ctx, item.ItemID, current.Status)
	}
	s.logg.Info(ctx, "item updated")
	return &item, nil
}

// editRaced handles a checkout or check-in that committed between the edit's
// read and its cache write. The sheet already took the edit, so its status
// columns are put back to the committed local state.
func (s *service) editRaced(ctx context.Context, itemID string, read enums.ItemStatus) error {
	conflict := pkgerrors.New(pkgerrors.CodeStateConflict, "item changed during the edit; reload and retry").
		WithDetails(map[string]any{"itemId": itemID, "readStatus": read})
	local, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		s.logg.Error(ctx, "reload after raced edit failed", err)
		return conflict
	}
	if err := s.gateway.UpdateInventoryRow(ctx, sheets.StatusPatch(*local)); err != nil {
		s.logg.Error(ctx, "restore sheet status after raced edit failed", err)
	}
	s.logg.Warn(s.logg.WithField(ctx, "status", local.Status.String()), "edit raced a transaction; cache kept")
	return conflict
}

// checkEditTransition allows any status move an admin can make by hand. Only
// checkout sets Checked out, only check-in releases it, and Removed is
// reached through Delete.
func checkEditTransition(from, to enums.ItemStatus) error {
	if from == to {
		return nil
	}
	if from == enums.ItemStatusCheckedOut {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item is checked out; check the item in first").
			WithDetails(map[string]any{"from": from, "to": to})
	}
	switch to {
	case enums.ItemStatusCheckedOut:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only checkout can set status Checked out").
			WithDetails(map[string]any{"from": from, "to": to})
	case enums.ItemStatusRemoved:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "use delete to remove an item").
			WithDetails(map[string]any{"from": from, "to": to})
	}
	return nil
}

func applyUpdate(item *models.Item, input UpdateItemInput) error {
	if input.ItemDesc != nil {
		item.ItemDesc = strings.TrimSpace(*input.ItemDesc)
	}
	if input.Description != nil {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsTagged != nil {
		item.IsTagged = *input.IsTagged
	}
	if input.Condition != nil {
		condition, err := parseCondition(*input.Condition)
		if err != nil {
			return err
		}
		item.Condition = condition
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return err
		}
		item.Status = status
	}
	if input.PurchaseDate != nil {
		item.PurchaseDate = strings.TrimSpace(*input.PurchaseDate)
	}
	if input.Cost != nil {
		cost, err := parseCost(input.Cost)
		if err != nil {
			return err
		}
		item.Cost = cost
	}
	if input.Notes != nil {
		item.Notes = strings.TrimSpace(*input.Notes)
	}
	if input.InApp != nil {
		item.InApp = *input.InApp
	}
	return validateText(item.Description, item.Notes)
}

// Delete is a soft delete: the sheet row and the cached item move to Removed
// from inventory. Deleting a removed item is a no-op.
func (s *service) Delete(ctx context.Context, itemID string) (*models.Item, error) {
	current, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return current, nil
	}
	ctx = s.logg.WithItemID(ctx, current.ItemID)

	item := *current
	item.Status = enums.ItemStatusRemoved
	item.ClearCheckout()
	item.LastUpdated = s.now()

	if err := s.gateway.UpdateInventoryRow(ctx, sheets.StatusPatch(item)); err != nil {
		return nil, err
	}
	if _, err := s.repo.SoftDelete(ctx, item.ItemID, item.LastUpdated); err != nil {
		s.logg.Error(ctx, "cache soft delete after sheet update failed", err)
	}
	s.logg.Info(ctx, "item removed from inventory")
	return &item, nil
}

func (s *service) ListTransactions(ctx context.Context, query TransactionQuery) (*types.Page[models.Transaction], error) {
	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	txs, next, err := s.repo.ListTransactions(ctx, ledger.TransactionListParams{
		ItemID: strings.TrimSpace(query.ItemID),
		Outing: strings.TrimSpace(query.Outing),
		Limit:  query.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	page := &types.Page[models.Transaction]{Items: txs}
	if page.Items == nil {
		page.Items = []models.Transaction{}
	}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func normalizeClass(raw string) (string, error) {
	class := strings.ToUpper(strings.TrimSpace(raw))
	if class == "" || len(class) > maxClassLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("itemClass must be 1 to %d characters", maxClassLen)).
			WithDetails(map[string]any{"field": "itemClass"})
	}
	return class, nil
}

func parseCondition(raw string) (enums.ItemCondition, error) {
	condition, ok := enums.NormalizeItemCondition(raw)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", raw)).
			WithDetails(map[string]any{"field": "condition"})
	}
	return condition, nil
}

func parseStatus(raw string) (enums.ItemStatus, error) {
	status, ok := enums.NormalizeItemStatus(raw)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", raw)).
			WithDetails(map[string]any{"field": "status"})
	}
	return status, nil
}

func parseCost(cost *decimal.Decimal) (decimal.NullDecimal, error) {
	if cost == nil || cost.IsZero() {
		return decimal.NullDecimal{}, nil
	}
	if cost.IsNegative() {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "cost must be positive").
			WithDetails(map[string]any{"field": "cost"})
	}
	return decimal.NullDecimal{Decimal: *cost, Valid: true}, nil
}

func validateText(description, notes string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", maxDescriptionLen)).
			WithDetails(map[string]any{"field": "description"})
	}
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", maxNotesLen)).
			WithDetails(map[string]any{"field": "notes"})
	}
	return nil
}
