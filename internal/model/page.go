// internal/model/page.go
package model

import "time"

// Page is a tenant-owned CMS page. StoreID is stamped on creation and never updated.
type Page struct {
	ID              int64      `db:"id" json:"id"`
	StoreID         *int64     `db:"store_id" json:"store_id"`
	Title           string     `db:"title" json:"title"`
	Slug            string     `db:"slug" json:"slug"`
	MetaTitle       string     `db:"meta_title" json:"meta_title,omitempty"`
	MetaDescription string     `db:"meta_description" json:"meta_description,omitempty"`
	MetaKeywords    string     `db:"meta_keywords" json:"meta_keywords,omitempty"`
	Content         string     `db:"content" json:"content,omitempty"`
	Status          Status     `db:"status" json:"status"`
	CreatedBy       *int64     `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy       *int64     `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PageFilter narrows a page listing. Zero values mean "no filter".
type PageFilter struct {
	Search         string
	Status         Status
	Page           int
	PerPage        int
	OnlyTrashed    bool
	IncludeTrashed bool
}

// PageList is one page of results plus the totals needed for pagination meta.
type PageList struct {
	Items       []Page `json:"data"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
}
