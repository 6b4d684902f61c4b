package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
)

// Fake is an in-memory workbook. It stores raw cell rows and runs them
// through the same codec as Client, so tests see real decoding behavior.
type Fake struct {
	mu           sync.Mutex
	inventory    [][]string
	transactions [][]string
	metadata     [][]string

	// Injected failures, keyed by operation: "list", "add", "update",
	// "append", "categories", "add-category", "update-category".
	Fail map[string]error

	Calls map[string]int
}

var _ Gateway = (*Fake)(nil)

// NewFake returns a workbook with header rows on every tab.
func NewFake() *Fake {
	return &Fake{
		inventory:    [][]string{append([]string(nil), InventoryHeaders...)},
		transactions: [][]string{append([]string(nil), TransactionHeaders...)},
		metadata:     [][]string{append([]string(nil), MetadataHeaders...)},
		Fail:         map[string]error{},
		Calls:        map[string]int{},
	}
}

// SeedItems appends encoded rows for items.
func (f *Fake) SeedItems(items ...models.Item) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.inventory = append(f.inventory, encodeRow(f.inventory[0], ItemValues(item)))
	}
	return f
}

// SeedRawInventory replaces the inventory tab, header row included.
func (f *Fake) SeedRawInventory(rows [][]string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = cloneRows(rows)
	return f
}

// SeedCategories appends metadata rows.
func (f *Fake) SeedCategories(categories ...models.Category) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range categories {
		f.metadata = append(f.metadata, encodeRow(f.metadata[0], categoryValues(c)))
	}
	return f
}

// InventoryRows returns a copy of the inventory tab.
func (f *Fake) InventoryRows() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRows(f.inventory)
}

// TransactionRows returns the transactions tab without its header.
func (f *Fake) TransactionRows() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRows(f.transactions[1:])
}

// Item decodes the current sheet row for itemID.
func (f *Fake) Item(itemID string) (models.Item, bool) {
	f.mu.Lock()
	read, err := decodeInventory(cloneRows(f.inventory))
	f.mu.Unlock()
	if err != nil {
		return models.Item{}, false
	}
	for _, item := range read.Items {
		if item.ItemID == itemID {
			return item, true
		}
	}
	return models.Item{}, false
}

func (f *Fake) call(op string) error {
	f.Calls[op]++
	if err := f.Fail[op]; err != nil {
		return GatewayError(op, err)
	}
	return nil
}

func (f *Fake) ListInventoryRows(ctx context.Context) (*InventoryRead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("list"); err != nil {
		return nil, err
	}
	read, err := decodeInventory(cloneRows(f.inventory))
	if err != nil {
		return nil, GatewayError("list", err)
	}
	return read, nil
}

func (f *Fake) AddInventoryRow(ctx context.Context, item models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("add"); err != nil {
		return err
	}
	f.inventory = append(f.inventory, encodeRow(f.inventory[0], ItemValues(item)))
	return nil
}

func (f *Fake) UpdateInventoryRow(ctx context.Context, patch ItemPatch) error {
	return f.UpdateInventoryRows(ctx, patch)
}

func (f *Fake) UpdateInventoryRows(ctx context.Context, patches ...ItemPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("update"); err != nil {
		return err
	}
	idx := newHeaderIndex(f.inventory[0])
	var missing error
	for _, patch := range patches {
		sheetRow := findRow(f.inventory, idx, HeaderItemID, patch.ItemID)
		if sheetRow == 0 {
			missing = multierr.Append(missing, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s not found in inventory sheet", patch.ItemID)))
			continue
		}
		setCells(f.inventory, idx, sheetRow, patch.Values)
	}
	return missing
}

func (f *Fake) AppendTransactionRows(ctx context.Context, txs ...models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("append"); err != nil {
		return err
	}
	for _, tx := range txs {
		f.transactions = append(f.transactions, encodeRow(f.transactions[0], transactionValues(tx)))
	}
	return nil
}

func (f *Fake) ListCategories(ctx context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("categories"); err != nil {
		return nil, err
	}
	return decodeCategories(cloneRows(f.metadata))
}

func (f *Fake) AddCategory(ctx context.Context, category models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("add-category"); err != nil {
		return err
	}
	f.metadata = append(f.metadata, encodeRow(f.metadata[0], categoryValues(category)))
	return nil
}

func (f *Fake) UpdateCategory(ctx context.Context, class string, category models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("update-category"); err != nil {
		return err
	}
	idx := newHeaderIndex(f.metadata[0])
	sheetRow := findRow(f.metadata, idx, HeaderClass, class)
	if sheetRow == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	setCells(f.metadata, idx, sheetRow, categoryValues(category))
	return nil
}

func setCells(rows [][]string, idx headerIndex, sheetRow int, values map[string]string) {
	i := sheetRow - 1
	for header, value := range values {
		col, ok := idx.col(header)
		if !ok {
			continue
		}
		for len(rows[i]) <= col {
			rows[i] = append(rows[i], "")
		}
		rows[i][col] = value
	}
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// HasTransaction reports whether a transaction row with id was appended.
func (f *Fake) HasTransaction(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := newHeaderIndex(f.transactions[0])
	return findRow(f.transactions, idx, HeaderTransactionID, strings.TrimSpace(id)) != 0
}
