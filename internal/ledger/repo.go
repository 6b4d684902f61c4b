package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	"github.com/angelmondragon/gearshed-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const replaceBatchSize = 200

// Repository is the local cache of the inventory sheet: items, transactions
// and the metadata category registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ReplaceAllItems(ctx context.Context, items []models.Item) error
	ReplaceSyncedItems(ctx context.Context, items []models.Item, readAt time.Time) ([]models.Item, []string, error)
	UpsertItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, itemID string) (*models.Item, error)
	ListItemsByCategory(ctx context.Context, class string) ([]models.Item, error)
	ListVisibleItems(ctx context.Context) ([]models.Item, error)
	ListAllItems(ctx context.Context) ([]models.Item, error)
	ListItemIDsByClass(ctx context.Context, class string) ([]string, error)
	ListAvailableItems(ctx context.Context, limit int) ([]models.Item, error)
	ListCheckedOutItems(ctx context.Context, limit int) ([]models.Item, error)
	SetItemStatus(ctx context.Context, itemID string, patch StatusPatch, guard StatusGuard) (bool, error)
	UpdateItemIfStatus(ctx context.Context, item *models.Item, expected enums.ItemStatus) (bool, error)
	SoftDelete(ctx context.Context, itemID string, now time.Time) (bool, error)

	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	ListPendingTransactions(ctx context.Context, committedBefore time.Time) ([]models.Transaction, error)
	MarkTransactionsLogged(ctx context.Context, ids []string, at time.Time) error
	MarkTransactionsReplicated(ctx context.Context, ids []string, at time.Time) error
	ListTransactions(ctx context.Context, params TransactionListParams) ([]models.Transaction, *pagination.Cursor, error)

	ListCategorySummaries(ctx context.Context) ([]models.CategorySummary, error)
	ListOutings(ctx context.Context) ([]models.OutingSummary, error)
	ListCheckedOutByOuting(ctx context.Context, outing string) ([]models.Item, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	UpsertCategory(ctx context.Context, category *models.Category) error
	ReplaceCategories(ctx context.Context, categories []models.Category) error
}

// StatusPatch is the full set of columns a checkout or checkin rewrites.
// Empty checkout fields are written as empty, clearing them.
type StatusPatch struct {
	Status       enums.ItemStatus
	Condition    enums.ItemCondition
	CheckedOutTo string
	CheckedOutBy string
	CheckOutDate string
	OutingName   string
	UpdatedAt    time.Time
}

// StatusGuard restricts SetItemStatus to rows in an expected state. The
// update reports false when no row matched, which makes it the commit gate
// for concurrent checkouts of the same item.
type StatusGuard int

const (
	GuardNone StatusGuard = iota
	// GuardAvailable matches items in the shed in a usable condition.
	GuardAvailable
	// GuardNotRemoved matches any item that has not been soft-deleted.
	GuardNotRemoved
)

// TransactionListParams filters the transaction log.
type TransactionListParams struct {
	ItemID string
	Outing string
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ReplaceAllItems(ctx context.Context, items []models.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceItems(tx, items)
	})
}

// ReplaceSyncedItems replaces the cache with a sheet snapshot read at readAt.
// An item keeps its local row when one of its transactions has not reached
// the sheet yet, or reached it after the read began, since the snapshot may
// predate that write. It returns the stored set and the ids kept local.
func (r *repository) ReplaceSyncedItems(ctx context.Context, items []models.Item, readAt time.Time) ([]models.Item, []string, error) {
	var (
		merged []models.Item
		kept   []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unsettled := tx.Model(&models.Transaction{}).
			Select("item_id").
			Where("replicated_at IS NULL OR replicated_at >= ?", readAt.UTC())
		var local []models.Item
		if err := tx.Where("item_id IN (?)", unsettled).Find(&local).Error; err != nil {
			return err
		}
		byID := make(map[string]models.Item, len(local))
		for _, item := range local {
			byID[item.ItemID] = item
		}

		merged = make([]models.Item, 0, len(items))
		kept = nil
		for _, item := range items {
			if own, ok := byID[item.ItemID]; ok {
				merged = append(merged, own)
				kept = append(kept, item.ItemID)
				continue
			}
			merged = append(merged, item)
		}
		return replaceItems(tx, merged)
	})
	if err != nil {
		return nil, nil, err
	}
	return merged, kept, nil
}

func replaceItems(tx *gorm.DB, items []models.Item) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Item{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.CreateInBatches(items, replaceBatchSize).Error
}

func (r *repository) UpsertItem(ctx context.Context, item *models.Item) error {
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ?", item.ItemID).
		Select("*").
		Omit("item_id").
		Updates(item)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetItemByID(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItemsByCategory(ctx context.Context, class string) ([]models.Item, error) {
	var items []models.Item
	err := r.visible(ctx).
		Where("item_class = ?", class).
		Order("item_id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) ListVisibleItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.visible(ctx).Order("item_class ASC, item_id ASC").Find(&items).Error
	return items, err
}

func (r *repository) ListAllItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Order("item_class ASC, item_id ASC").Find(&items).Error
	return items, err
}

// ListItemIDsByClass includes soft-deleted items so their numbers are never
// handed out again.
func (r *repository) ListItemIDsByClass(ctx context.Context, class string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("UPPER(item_class) = ?", strings.ToUpper(class)).
		Pluck("item_id", &ids).Error
	return ids, err
}

func (r *repository) ListAvailableItems(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	query := r.visible(ctx).
		Where("status = ? AND condition IN ?", enums.ItemStatusInShed, checkoutConditions()).
		Order("item_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *repository) ListCheckedOutItems(ctx context.Context, limit int) ([]models.Item, error) {
	var items []models.Item
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ItemStatusCheckedOut).
		Order("item_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *repository) SetItemStatus(ctx context.Context, itemID string, patch StatusPatch, guard StatusGuard) (bool, error) {
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = time.Now().UTC()
	}
	query := r.db.WithContext(ctx).Model(&models.Item{}).Where("item_id = ?", itemID)
	switch guard {
	case GuardAvailable:
		query = query.Where("status = ? AND condition IN ?", enums.ItemStatusInShed, checkoutConditions())
	case GuardNotRemoved:
		query = query.Where("status <> ?", enums.ItemStatusRemoved)
	}
	result := query.Updates(map[string]any{
		"status":         patch.Status,
		"condition":      patch.Condition,
		"checked_out_to": patch.CheckedOutTo,
		"checked_out_by": patch.CheckedOutBy,
		"check_out_date": patch.CheckOutDate,
		"outing_name":    patch.OutingName,
		"last_updated":   patch.UpdatedAt,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateItemIfStatus rewrites the whole row only while the item is still in
// the expected status, so an edit cannot clobber a checkout that committed
// after the edit read the row.
func (r *repository) UpdateItemIfStatus(ctx context.Context, item *models.Item, expected enums.ItemStatus) (bool, error) {
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ? AND status = ?", item.ItemID, expected).
		Select("*").
		Omit("item_id").
		Updates(item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SoftDelete(ctx context.Context, itemID string, now time.Time) (bool, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("item_id = ?", itemID).
		Updates(map[string]any{
			"status":         enums.ItemStatusRemoved,
			"checked_out_to": "",
			"checked_out_by": "",
			"check_out_date": "",
			"outing_name":    "",
			"last_updated":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListPendingTransactions returns transactions committed before the cutoff
// that have not fully reached the sheet, oldest first.
func (r *repository) ListPendingTransactions(ctx context.Context, committedBefore time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("replicated_at IS NULL AND timestamp < ?", committedBefore.UTC()).
		Order("timestamp ASC, transaction_id ASC").
		Find(&txs).Error
	return txs, err
}

func (r *repository) MarkTransactionsLogged(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("transaction_id IN ? AND sheet_logged_at IS NULL", ids).
		Update("sheet_logged_at", at.UTC()).Error
}

func (r *repository) MarkTransactionsReplicated(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("transaction_id IN ? AND replicated_at IS NULL", ids).
		Updates(map[string]any{
			"replicated_at":   at.UTC(),
			"sheet_logged_at": gorm.Expr("COALESCE(sheet_logged_at, ?)", at.UTC()),
		}).Error
}

func (r *repository) ListTransactions(ctx context.Context, params TransactionListParams) ([]models.Transaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.Outing != "" {
		query = query.Where("outing_name = ?", params.Outing)
	}
	if params.Cursor != nil {
		query = query.Where("(timestamp, transaction_id) < (?, ?)", params.Cursor.Timestamp.UTC(), params.Cursor.ID)
	}

	var txs []models.Transaction
	if err := query.Order("timestamp DESC, transaction_id DESC").Limit(limit).Find(&txs).Error; err != nil {
		return nil, nil, err
	}

	if len(txs) > normalized {
		txs = txs[:normalized]
		last := txs[normalized-1]
		return txs, &pagination.Cursor{Timestamp: last.Timestamp, ID: last.TransactionID}, nil
	}
	return txs, nil, nil
}

func (r *repository) ListCategorySummaries(ctx context.Context) ([]models.CategorySummary, error) {
	var summaries []models.CategorySummary
	err := r.db.WithContext(ctx).Order("class ASC").Find(&summaries).Error
	return summaries, err
}

func (r *repository) ListOutings(ctx context.Context) ([]models.OutingSummary, error) {
	var outings []models.OutingSummary
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("outing_name, COUNT(*) AS item_count").
		Where("status = ? AND outing_name <> ''", enums.ItemStatusCheckedOut).
		Group("outing_name").
		Order("outing_name ASC").
		Scan(&outings).Error
	return outings, err
}

func (r *repository) ListCheckedOutByOuting(ctx context.Context, outing string) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("status = ? AND outing_name = ?", enums.ItemStatusCheckedOut, outing).
		Order("item_class ASC, item_id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("class ASC").Find(&categories).Error
	return categories, err
}

func (r *repository) UpsertCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class"}},
		DoUpdates: clause.AssignmentColumns([]string{"class_desc"}),
	}).Create(category).Error
}

func (r *repository) ReplaceCategories(ctx context.Context, categories []models.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Category{}).Error; err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		return tx.CreateInBatches(categories, replaceBatchSize).Error
	})
}

func (r *repository) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("in_app = ? AND status <> ?", true, enums.ItemStatusRemoved)
}

func checkoutConditions() []enums.ItemCondition {
	return []enums.ItemCondition{enums.ItemConditionUsable, enums.ItemConditionUnknown}
}
