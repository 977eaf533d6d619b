package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kassa/internal/core"
	"kassa/internal/storage"
)

// NoCategoriesMessage is returned by CategoryList when the user has none.
const NoCategoriesMessage = "There are no categories yet"

// CategoryRegistry is the sole authority for category existence. Every
// lookup re-reads the persisted set; nothing is cached between requests.
type CategoryRegistry struct {
	store *storage.Repository
}

func NewCategoryRegistry(store *storage.Repository) *CategoryRegistry {
	return &CategoryRegistry{store: store}
}

// AddCategory parses "name" or "name amount" and creates the category. It
// returns (nil, nil) when the normalized name already exists for the user;
// the caller reports the duplicate. A second call with the same name never
// creates a second row.
func (r *CategoryRegistry) AddCategory(ctx context.Context, userID int64, raw string) (*core.Category, error) {
	name, limit, err := core.ParseCategorySpec(raw)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.GetCategoryByName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("lookup category %q: %w", name, err)
	}
	if existing != nil {
		return nil, nil
	}

	cat, err := r.store.CreateCategory(ctx, userID, name, limit)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	slog.InfoContext(ctx, "Category created",
		"user_id", userID, "category", cat.Name, "category_id", cat.ID, "has_limit", limit != nil)
	return &cat, nil
}

// GetCategory looks a category up by its case-normalized name.
func (r *CategoryRegistry) GetCategory(ctx context.Context, userID int64, name string) (*core.Category, error) {
	return r.store.GetCategoryByName(ctx, userID, core.NormalizeName(name))
}

// GetAllCategories returns the user's categories in insertion order.
func (r *CategoryRegistry) GetAllCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return r.store.ListCategories(ctx, userID)
}

// DelCategory removes only the category row. The cascade over owned
// expenses is the ledger's half; front-end intents go through
// ExpenseLedger.DeleteCategory which runs both in one transaction.
func (r *CategoryRegistry) DelCategory(ctx context.Context, cat core.Category) error {
	return r.store.DeleteCategoryRow(ctx, cat.ID)
}

// CategoryList renders the human-readable listing.
func (r *CategoryRegistry) CategoryList(ctx context.Context, userID int64) (string, error) {
	cats, err := r.store.ListCategories(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return NoCategoriesMessage, nil
	}

	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range cats {
		b.WriteString("\n* ")
		b.WriteString(core.Capitalize(c.Name))
		if c.MaxAmount != nil {
			fmt.Fprintf(&b, " (Monthly Limit: %d)", *c.MaxAmount)
		}
	}
	return b.String(), nil
}
