// internal/storage/pages.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"storefront/internal/model"
	"storefront/internal/tenant"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

const pageColumns = `id, store_id, title, slug, meta_title, meta_description, meta_keywords,
		content, status, created_by, updated_by, created_at, updated_at, deleted_at`

func scanPage(row rowScanner) (model.Page, error) {
	var (
		p                         model.Page
		storeID, created, updated sql.NullInt64
		deleted                   sql.NullTime
	)
	err := row.Scan(&p.ID, &storeID, &p.Title, &p.Slug, &p.MetaTitle, &p.MetaDescription, &p.MetaKeywords,
		&p.Content, &p.Status, &created, &updated, &p.CreatedAt, &p.UpdatedAt, &deleted)
	if err != nil {
		return model.Page{}, mapError(err)
	}
	p.StoreID = int64Ptr(storeID)
	p.CreatedBy = int64Ptr(created)
	p.UpdatedBy = int64Ptr(updated)
	p.DeletedAt = timePtr(deleted)
	return p, nil
}

// CreatePage inserts p. The store id comes from scope when it is bound,
// whatever p.StoreID holds.
func (s *Storage) CreatePage(ctx context.Context, scope tenant.Scope, p model.Page) (model.Page, error) {
	storeID, err := scope.Stamp(p.StoreID)
	if err != nil {
		return model.Page{}, err
	}
	query := `
		INSERT INTO pages (store_id, title, slug, meta_title, meta_description, meta_keywords,
			content, status, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + pageColumns
	return scanPage(s.DB.QueryRowContext(ctx, query,
		storeID, p.Title, p.Slug, p.MetaTitle, p.MetaDescription, p.MetaKeywords,
		p.Content, p.Status, p.CreatedBy))
}

func (s *Storage) GetPage(ctx context.Context, scope tenant.Scope, id int64) (model.Page, error) {
	args := []any{id}
	clause, args, err := scopeClause(scope, "store_id", args)
	if err != nil {
		return model.Page{}, err
	}
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND deleted_at IS NULL` + clause
	return scanPage(s.DB.QueryRowContext(ctx, query, args...))
}

// ActivePageBySlug is the public site lookup.
func (s *Storage) ActivePageBySlug(ctx context.Context, scope tenant.Scope, slug string) (model.Page, error) {
	args := []any{slug}
	clause, args, err := scopeClause(scope, "store_id", args)
	if err != nil {
		return model.Page{}, err
	}
	query := `SELECT ` + pageColumns + `
		FROM pages
		WHERE slug = $1 AND status = 'active' AND deleted_at IS NULL` + clause
	return scanPage(s.DB.QueryRowContext(ctx, query, args...))
}

// ListPages returns one page of results ordered newest first.
func (s *Storage) ListPages(ctx context.Context, scope tenant.Scope, f model.PageFilter) (model.PageList, error) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	current := f.Page
	if current <= 0 {
		current = 1
	}

	where := "WHERE TRUE"
	var args []any
	switch {
	case f.OnlyTrashed:
		where += " AND deleted_at IS NOT NULL"
	case !f.IncludeTrashed:
		where += " AND deleted_at IS NULL"
	}
	clause, args, err := scopeClause(scope, "store_id", args)
	if err != nil {
		return model.PageList{}, err
	}
	where += clause
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND (title ILIKE $%d OR slug ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages "+where, args...).Scan(&total); err != nil {
		return model.PageList{}, fmt.Errorf("count pages: %w", err)
	}

	args = append(args, perPage, (current-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM pages %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		pageColumns, where, len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return model.PageList{}, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	list := model.PageList{Items: []model.Page{}, CurrentPage: current, PerPage: perPage, Total: total}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return model.PageList{}, err
		}
		list.Items = append(list.Items, p)
	}
	if err := rows.Err(); err != nil {
		return model.PageList{}, err
	}

	list.LastPage = (total + perPage - 1) / perPage
	if list.LastPage == 0 {
		list.LastPage = 1
	}
	return list, nil
}

// UpdatePage writes the editable fields. store_id is never part of the update.
func (s *Storage) UpdatePage(ctx context.Context, scope tenant.Scope, p model.Page) (model.Page, error) {
	args := []any{p.ID, p.Title, p.Slug, p.MetaTitle, p.MetaDescription, p.MetaKeywords, p.Content, p.Status, p.UpdatedBy}
	clause, args, err := scopeClause(scope, "store_id", args)
	if err != nil {
		return model.Page{}, err
	}
	query := `
		UPDATE pages SET title = $2, slug = $3, meta_title = $4, meta_description = $5,
			meta_keywords = $6, content = $7, status = $8, updated_by = $9, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL` + clause + `
		RETURNING ` + pageColumns
	return scanPage(s.DB.QueryRowContext(ctx, query, args...))
}

// SetPagesStatus bulk-updates status, including soft-deleted rows.
func (s *Storage) SetPagesStatus(ctx context.Context, scope tenant.Scope, ids []int64, status model.Status, by *int64) (int64, error) {
	args := []any{pq.Array(ids), status, by}
	return s.execPages(ctx, scope, args,
		`UPDATE pages SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = ANY($1)`)
}

func (s *Storage) SoftDeletePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return s.execPages(ctx, scope, []any{pq.Array(ids)},
		`UPDATE pages SET deleted_at = NOW() WHERE id = ANY($1) AND deleted_at IS NULL`)
}

func (s *Storage) RestorePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return s.execPages(ctx, scope, []any{pq.Array(ids)},
		`UPDATE pages SET deleted_at = NULL, updated_at = NOW() WHERE id = ANY($1) AND deleted_at IS NOT NULL`)
}

func (s *Storage) PurgePages(ctx context.Context, scope tenant.Scope, ids []int64) (int64, error) {
	return s.execPages(ctx, scope, []any{pq.Array(ids)}, `DELETE FROM pages WHERE id = ANY($1)`)
}

func (s *Storage) execPages(ctx context.Context, scope tenant.Scope, args []any, stmt string) (int64, error) {
	clause, args, err := scopeClause(scope, "store_id", args)
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, stmt+clause, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}
