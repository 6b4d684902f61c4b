package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
)

func TestFakeRoundTripsThroughCodec(t *testing.T) {
	ctx := context.Background()
	fake := NewFake().SeedItems(models.Item{
		ItemID:    "TENT-001",
		ItemClass: "TENT",
		Status:    enums.ItemStatusInShed,
		Condition: enums.ItemConditionUsable,
		InApp:     true,
	})

	item, ok := fake.Item("TENT-001")
	if !ok || item.Status != enums.ItemStatusInShed {
		t.Fatalf("seeded item: ok=%v status=%s", ok, item.Status)
	}

	item.Status = enums.ItemStatusMissing
	item.Condition = enums.ItemConditionUnknown
	if err := fake.UpdateInventoryRow(ctx, StatusPatch(item)); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, ok := fake.Item("TENT-001")
	if !ok || got.Status != enums.ItemStatusMissing || got.Condition != enums.ItemConditionUnknown {
		t.Fatalf("patched item: ok=%v %+v", ok, got)
	}
	if fake.Calls["list"] != 0 {
		t.Error("Item does not count as a gateway read")
	}
}

func TestFakeInjectedFailure(t *testing.T) {
	fake := NewFake()
	fake.Fail["list"] = errors.New("quota exceeded")

	_, err := fake.ListInventoryRows(context.Background())
	if err == nil || !IsGatewayError(err) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if fake.Calls["list"] != 1 {
		t.Fatalf("expected one list call, got %d", fake.Calls["list"])
	}
}

func TestFakeUpdateUnknownItem(t *testing.T) {
	err := NewFake().UpdateInventoryRows(context.Background(), ItemPatch{ItemID: "NOPE-001"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFakeTransactions(t *testing.T) {
	fake := NewFake()
	tx := models.Transaction{TransactionID: "TXN-9", ItemID: "TENT-001", Action: enums.TransactionActionCheckIn}
	if err := fake.AppendTransactionRows(context.Background(), tx); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !fake.HasTransaction("TXN-9") || fake.HasTransaction("TXN-10") {
		t.Fatal("HasTransaction should match appended ids only")
	}
	if n := len(fake.TransactionRows()); n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}
