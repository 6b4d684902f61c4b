// Package ledgertest opens migrated in-memory ledger databases for tests.
package ledgertest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gearshed-backend/pkg/db"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	"github.com/angelmondragon/gearshed-backend/pkg/migrate"
)

var seq atomic.Int64

// Open returns a client on a fresh shared-cache in-memory database with the
// real migrations applied. The pool is capped at one connection, so code
// under test must only use the tx handle inside WithTx.
func Open(t testing.TB) *db.Client {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	client, err := db.Open(dsn, 1)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := migrate.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

// Item builds an available item in class derived from the id prefix.
func Item(itemID string) models.Item {
	class := itemID
	num := ""
	if idx := strings.LastIndex(itemID, "-"); idx > 0 {
		class = itemID[:idx]
		num = itemID[idx+1:]
	}
	return models.Item{
		ItemID:      itemID,
		ItemClass:   class,
		ItemDesc:    class,
		ItemNum:     num,
		Description: "test " + strings.ToLower(class),
		Condition:   enums.ItemConditionUsable,
		Status:      enums.ItemStatusInShed,
		Cost:        decimal.NullDecimal{},
		InApp:       true,
		LastUpdated: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Seed inserts items directly.
func Seed(t testing.TB, client *db.Client, items ...models.Item) {
	t.Helper()
	for i := range items {
		if err := client.DB().Create(&items[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", items[i].ItemID, err)
		}
	}
}
