package transactions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gearshed-backend/internal/cron"
	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/ledger/ledgertest"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/internal/transactions"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type syncFixture struct {
	svc    transactions.Service
	engine *sheetsync.Engine
	repo   ledger.Repository
	fake   *sheets.Fake
	clock  *clock
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	client := ledgertest.Open(t)
	tent := ledgertest.Item("TENT-001")
	ledgertest.Seed(t, client, tent)
	repo := ledger.NewRepository(client.DB())
	fake := sheets.NewFake().SeedItems(tent)
	clk := &clock{now: fixedNow}

	svc, err := transactions.NewService(transactions.ServiceParams{
		Tx:      client,
		Repo:    repo,
		Gateway: fake,
		Logger:  logger.Nop(),
		Clock:   clk.Now,
	})
	require.NoError(t, err)
	engine, err := sheetsync.NewEngine(sheetsync.EngineParams{
		Gateway:  fake,
		Repo:     repo,
		Lock:     cron.NewLocalLock(),
		Logger:   logger.Nop(),
		Clock:    clk.Now,
		Replayer: svc,
	})
	require.NoError(t, err)
	return &syncFixture{svc: svc, engine: engine, repo: repo, fake: fake, clock: clk}
}

func TestSyncBeforeReplicationKeepsCheckout(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, checkoutTent())
	require.NoError(t, err)
	require.True(t, first.Results[0].Success)

	// The sheet still says In shed; the sync must not release the item.
	f.clock.Advance(time.Second)
	result, err := f.engine.FullSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TENT-001"}, result.Report.KeptLocal)

	second, err := f.svc.Checkout(ctx, checkoutTent())
	require.NoError(t, err)
	assert.False(t, second.Results[0].Success)
	assert.Equal(t, transactions.MsgItemNotAvailable, second.Results[0].Error)

	require.NoError(t, f.svc.Replicate(ctx, first))
	require.NoError(t, f.svc.Replicate(ctx, second))
	assert.Len(t, f.fake.TransactionRows(), 1, "one checkout reaches the sheet")

	f.clock.Advance(time.Second)
	result, err = f.engine.FullSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Report.KeptLocal, "replicated rows come from the sheet again")
	item, err := f.repo.GetItemByID(ctx, "TENT-001")
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusCheckedOut, item.Status)
	assert.Equal(t, "Fall Camp", item.OutingName)
}

func TestReplicationFinishingDuringSyncKeepsCheckout(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	batch, err := f.svc.Checkout(ctx, checkoutTent())
	require.NoError(t, err)

	// The sync read starts, then replication lands before the cache write.
	readAt := f.clock.Now()
	read, err := f.fake.ListInventoryRows(ctx)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	require.NoError(t, f.svc.Replicate(ctx, batch))

	_, kept, err := f.repo.ReplaceSyncedItems(ctx, read.Items, readAt)
	require.NoError(t, err)
	assert.Equal(t, []string{"TENT-001"}, kept)
	item, err := f.repo.GetItemByID(ctx, "TENT-001")
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusCheckedOut, item.Status)
}

func TestFullSyncReplaysFailedReplication(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.fake.Fail["update"] = errors.New("quota exceeded")
	batch, err := f.svc.Checkout(ctx, checkoutTent())
	require.NoError(t, err)
	require.Error(t, f.svc.Replicate(ctx, batch))
	require.Len(t, f.fake.TransactionRows(), 1, "the log row was appended")

	// Too young for a replay; the row stays local.
	result, err := f.engine.FullSync(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Report.Replayed)
	assert.Equal(t, []string{"TENT-001"}, result.Report.KeptLocal)

	delete(f.fake.Fail, "update")
	f.clock.Advance(2 * transactions.DefaultReplayAfter)
	result, err = f.engine.FullSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Replayed)
	assert.Empty(t, result.Report.ReplayError)

	assert.Len(t, f.fake.TransactionRows(), 1, "a logged row is not appended twice")
	row, ok := f.fake.Item("TENT-001")
	require.True(t, ok)
	assert.Equal(t, enums.ItemStatusCheckedOut, row.Status)

	n, err := f.svc.ReplicatePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing left pending")
}

func TestReplicatePendingSkipsItemsGoneFromCache(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.fake.Fail["append"] = errors.New("sheet offline")
	f.fake.Fail["update"] = errors.New("sheet offline")
	batch, err := f.svc.Checkout(ctx, checkoutTent())
	require.NoError(t, err)
	require.Error(t, f.svc.Replicate(ctx, batch))

	// Someone deleted the row from the sheet. The replay logs the
	// transaction but cannot patch the row, and the sync drops the item.
	f.fake.SeedRawInventory([][]string{sheets.InventoryHeaders})
	delete(f.fake.Fail, "append")
	delete(f.fake.Fail, "update")
	f.clock.Advance(2 * transactions.DefaultReplayAfter)
	result, err := f.engine.FullSync(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Report.ReplayError)
	assert.True(t, f.fake.HasTransaction(batch.Results[0].TransactionID))

	n, err := f.svc.ReplicatePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.fake.TransactionRows(), 1)

	n, err = f.svc.ReplicatePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
