package categories_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gearshed-backend/internal/categories"
	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/ledger/ledgertest"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

func newService(t *testing.T) (categories.Service, ledger.Repository, *sheets.Fake) {
	t.Helper()
	client := ledgertest.Open(t)
	repo := ledger.NewRepository(client.DB())
	fake := sheets.NewFake().SeedCategories(models.Category{Class: "TENT", ClassDesc: "Tents"})
	svc, err := categories.NewService(repo, fake, logger.Nop())
	require.NoError(t, err)
	return svc, repo, fake
}

func conflictField(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	field, _ := details["field"].(string)
	return field
}

func TestAddCategory(t *testing.T) {
	svc, repo, fake := newService(t)
	ctx := context.Background()

	got, err := svc.Add(ctx, categories.Input{Class: " stov ", ClassDesc: "Stoves"})
	require.NoError(t, err)
	assert.Equal(t, &models.Category{Class: "STOV", ClassDesc: "Stoves"}, got)

	remote, err := fake.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, remote, 2)

	local, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Class: "STOV", ClassDesc: "Stoves"}}, local)
}

func TestAddCategoryCountsCharacters(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	// 22 characters, 25 bytes.
	desc := "Küchengeräte für Zelte"
	got, err := svc.Add(ctx, categories.Input{Class: "KUCH", ClassDesc: desc})
	require.NoError(t, err)
	assert.Equal(t, desc, got.ClassDesc)

	_, err = svc.Add(ctx, categories.Input{Class: "KUCH2", ClassDesc: desc + "n"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAddCategoryUniqueness(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertCategory(ctx, &models.Category{Class: "LANT", ClassDesc: "Lanterns"}))

	_, err := svc.Add(ctx, categories.Input{Class: "tent", ClassDesc: "Shelters"})
	assert.Equal(t, "class", conflictField(t, err))

	_, err = svc.Add(ctx, categories.Input{Class: "SHLT", ClassDesc: "Tents"})
	assert.Equal(t, "classDesc", conflictField(t, err))

	_, err = svc.Add(ctx, categories.Input{Class: "LAMP", ClassDesc: "Lanterns"})
	assert.Equal(t, "classDesc", conflictField(t, err), "the cache counts too")

	_, err = svc.Add(ctx, categories.Input{Class: "SHLT", ClassDesc: "tents"})
	assert.NoError(t, err, "classDesc compares case-sensitively")
}

func TestAddCategoryValidation(t *testing.T) {
	svc, _, fake := newService(t)
	for name, input := range map[string]categories.Input{
		"empty class":  {ClassDesc: "Things"},
		"long class":   {Class: "SLEEPBAG", ClassDesc: "Sleeping bags"},
		"symbol class": {Class: "T-1", ClassDesc: "Things"},
		"empty desc":   {Class: "THNG"},
		"long desc":    {Class: "THNG", ClassDesc: "A very long description here"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), input)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}
	assert.Zero(t, fake.Calls["add-category"])
}

func TestAddCategoryFailsFast(t *testing.T) {
	svc, repo, fake := newService(t)
	fake.Fail["add-category"] = errors.New("403")

	_, err := svc.Add(context.Background(), categories.Input{Class: "STOV", ClassDesc: "Stoves"})
	require.Error(t, err)
	assert.True(t, sheets.IsGatewayError(err))

	local, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestUpdateCategory(t *testing.T) {
	svc, repo, fake := newService(t)
	ctx := context.Background()
	fake.SeedCategories(models.Category{Class: "STOV", ClassDesc: "Stoves"})

	got, err := svc.Update(ctx, "tent", categories.Input{Class: "TENT", ClassDesc: "Tents and tarps"})
	require.NoError(t, err)
	assert.Equal(t, "Tents and tarps", got.ClassDesc)

	local, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, local, models.Category{Class: "TENT", ClassDesc: "Tents and tarps"})

	_, err = svc.Update(ctx, "TENT", categories.Input{Class: "TENT", ClassDesc: "Tents and tarps"})
	assert.NoError(t, err, "keeping the current values is not a conflict")

	_, err = svc.Update(ctx, "TENT", categories.Input{Class: "STOV", ClassDesc: "Tents and tarps"})
	assert.Equal(t, "class", conflictField(t, err))

	_, err = svc.Update(ctx, "NOPE", categories.Input{Class: "NOPE", ClassDesc: "Nothing"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListFallsBackToCache(t *testing.T) {
	svc, repo, fake := newService(t)
	ctx := context.Background()

	listing, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listing.Warning)
	assert.Len(t, listing.Categories, 1)

	require.NoError(t, repo.UpsertCategory(ctx, &models.Category{Class: "LANT", ClassDesc: "Lanterns"}))
	fake.Fail["categories"] = errors.New("offline")
	listing, err = svc.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, listing.Warning)
	assert.Equal(t, []models.Category{{Class: "LANT", ClassDesc: "Lanterns"}}, listing.Categories)
}
