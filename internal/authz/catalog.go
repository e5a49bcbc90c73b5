package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogVersion increments whenever the permission catalog changes shape.
// Seed is idempotent, so bumping the version and redeploying is enough to
// roll new permissions out.
const CatalogVersion = 3

// Platform permission names. The catalog is read-only at runtime; new
// permissions are added here and seeded at startup.
const (
	PermBookingsView   = "bookings.view"
	PermBookingsManage = "bookings.manage"

	PermShopsView   = "shops.view"
	PermShopsManage = "shops.manage"

	PermEventsView   = "events.view"
	PermEventsManage = "events.manage"

	PermReviewsView     = "reviews.view"
	PermReviewsModerate = "reviews.moderate"

	PermStaffView    = "staff.view"
	PermStaffOnboard = "staff.onboard"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermAccountsView = "accounts.view"
	PermAccountsEdit = "accounts.edit"

	PermGrantsEdit = "grants.edit"

	PermPermissionsView = "permissions.view"

	PermReportsView = "reports.view"
)

// CatalogEntry describes one permission in the static catalog.
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var catalogEntries = []CatalogEntry{
	{PermBookingsView, "View bookings and booking schedules", "bookings"},
	{PermBookingsManage, "Create, amend and cancel bookings", "bookings"},
	{PermShopsView, "View shop listings and inventory", "shops"},
	{PermShopsManage, "Manage shop listings, pricing and inventory", "shops"},
	{PermEventsView, "View events and availability", "events"},
	{PermEventsManage, "Create and manage events", "events"},
	{PermReviewsView, "View customer reviews", "reviews"},
	{PermReviewsModerate, "Moderate and respond to reviews", "reviews"},
	{PermStaffView, "View business staff members", "staff"},
	{PermStaffOnboard, "Onboard new staff accounts", "staff"},
	{PermRolesView, "View roles and their grants", "roles"},
	{PermRolesEdit, "Create, clone and edit roles", "roles"},
	{PermAccountsView, "View platform accounts", "accounts"},
	{PermAccountsEdit, "Activate and deactivate accounts", "accounts"},
	{PermGrantsEdit, "Grant and revoke staff permissions", "accounts"},
	{PermPermissionsView, "View the permission catalog", "platform"},
	{PermReportsView, "View business reports", "platform"},
}

var catalogIndex = func() map[string]CatalogEntry {
	index := make(map[string]CatalogEntry, len(catalogEntries))
	for _, entry := range catalogEntries {
		index[entry.Name] = entry
	}
	return index
}()

// Catalog returns the full static permission catalog.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, len(catalogEntries))
	copy(entries, catalogEntries)
	return entries
}

// CatalogNames returns every permission name in the catalog.
func CatalogNames() []string {
	names := make([]string, len(catalogEntries))
	for i, entry := range catalogEntries {
		names[i] = entry.Name
	}
	return names
}

// InCatalog reports whether the named permission exists.
func InCatalog(name string) bool {
	_, ok := catalogIndex[NormalizePermission(name)]
	return ok
}

// CatalogByCategory groups catalog entries by category.
func CatalogByCategory() map[string][]CatalogEntry {
	grouped := make(map[string][]CatalogEntry)
	for _, entry := range catalogEntries {
		grouped[entry.Category] = append(grouped[entry.Category], entry)
	}
	return grouped
}

// SeedCatalog upserts the static catalog into the permissions table. Safe to
// run on every startup.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	for _, entry := range catalogEntries {
		_, err := pool.Exec(ctx, `
			INSERT INTO permissions (name, description, category)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, category = EXCLUDED.category
		`, entry.Name, entry.Description, entry.Category)
		if err != nil {
			return fmt.Errorf("authz: seed permission %s: %w", entry.Name, err)
		}
	}
	return nil
}
