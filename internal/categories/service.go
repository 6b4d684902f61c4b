// Package categories manages the metadata registry of item classes.
package categories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

const maxClassDescLen = 22

var classPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

type Service interface {
	// List reads the sheet and falls back to the cache when it is unreachable.
	List(ctx context.Context) (*Listing, error)
	Add(ctx context.Context, input Input) (*models.Category, error)
	Update(ctx context.Context, class string, input Input) (*models.Category, error)
	// Summaries returns per-class item counts from the cache.
	Summaries(ctx context.Context) ([]models.CategorySummary, error)
}

type Input struct {
	Class     string
	ClassDesc string
}

type Listing struct {
	Categories []models.Category `json:"categories"`
	Warning    string            `json:"warning,omitempty"`
}

type service struct {
	repo    ledger.Repository
	gateway sheets.Gateway
	logg    *logger.Logger
}

func NewService(repo ledger.Repository, gateway sheets.Gateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("sheets gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gateway, logg: logg}, nil
}

func (s *service) List(ctx context.Context) (*Listing, error) {
	categories, err := s.gateway.ListCategories(ctx)
	if err == nil {
		return &Listing{Categories: nonNil(categories)}, nil
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "category list falling back to cache")
	cached, cacheErr := s.repo.ListCategories(ctx)
	if cacheErr != nil {
		return nil, err
	}
	return &Listing{
		Categories: nonNil(cached),
		Warning:    "spreadsheet unavailable; showing cached categories",
	}, nil
}

func (s *service) Add(ctx context.Context, input Input) (*models.Category, error) {
	category, err := normalize(input)
	if err != nil {
		return nil, err
	}
	existing, err := s.known(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(existing, category, ""); err != nil {
		return nil, err
	}

	if err := s.gateway.AddCategory(ctx, category); err != nil {
		return nil, err
	}
	s.cache(ctx, category)
	return &category, nil
}

// Update rewrites the row for class. The class code itself may change as long
// as the new code is unused.
func (s *service) Update(ctx context.Context, class string, input Input) (*models.Category, error) {
	class = strings.ToUpper(strings.TrimSpace(class))
	category, err := normalize(input)
	if err != nil {
		return nil, err
	}
	existing, err := s.known(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, c := range existing {
		if strings.EqualFold(c.Class, class) {
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	if err := checkUnique(existing, category, class); err != nil {
		return nil, err
	}

	if err := s.gateway.UpdateCategory(ctx, class, category); err != nil {
		return nil, err
	}
	if err := s.refreshCache(ctx); err != nil {
		s.logg.Error(ctx, "category cache refresh after update failed", err)
	}
	return &category, nil
}

func (s *service) Summaries(ctx context.Context) ([]models.CategorySummary, error) {
	summaries, err := s.repo.ListCategorySummaries(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list category summaries")
	}
	if summaries == nil {
		summaries = []models.CategorySummary{}
	}
	return summaries, nil
}

// known merges the sheet registry with the cache so uniqueness holds against
// both. A sheet read failure fails the write.
func (s *service) known(ctx context.Context) ([]models.Category, error) {
	remote, err := s.gateway.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	local, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cached categories")
	}
	return append(remote, local...), nil
}

func (s *service) cache(ctx context.Context, category models.Category) {
	if err := s.repo.UpsertCategory(ctx, &category); err != nil {
		s.logg.Error(ctx, "category cache write failed", err)
	}
}

func (s *service) refreshCache(ctx context.Context) error {
	categories, err := s.gateway.ListCategories(ctx)
	if err != nil {
		return err
	}
	return s.repo.ReplaceCategories(ctx, categories)
}

// checkUnique rejects a class already in use (case-insensitive) or a classDesc
// already in use (exact match). Rows for skipClass are the row being edited.
func checkUnique(existing []models.Category, candidate models.Category, skipClass string) error {
	for _, c := range existing {
		if skipClass != "" && strings.EqualFold(c.Class, skipClass) {
			continue
		}
		if strings.EqualFold(c.Class, candidate.Class) {
			return conflict("class", "class already exists")
		}
		if c.ClassDesc == candidate.ClassDesc {
			return conflict("classDesc", "classDesc already exists")
		}
	}
	return nil
}

func conflict(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, message).WithDetails(map[string]any{"field": field})
}

func normalize(input Input) (models.Category, error) {
	class := strings.ToUpper(strings.TrimSpace(input.Class))
	desc := strings.TrimSpace(input.ClassDesc)
	if !classPattern.MatchString(class) {
		return models.Category{}, pkgerrors.New(pkgerrors.CodeValidation, "class must be 1 to 5 letters or digits").
			WithDetails(map[string]any{"field": "class"})
	}
	if desc == "" || utf8.RuneCountInString(desc) > maxClassDescLen {
		return models.Category{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("classDesc must be 1 to %d characters", maxClassDescLen)).
			WithDetails(map[string]any{"field": "classDesc"})
	}
	return models.Category{Class: class, ClassDesc: desc}, nil
}

func nonNil(categories []models.Category) []models.Category {
	if categories == nil {
		return []models.Category{}
	}
	return categories
}
