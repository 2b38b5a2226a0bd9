package specification

import "gorm.io/gorm"

// DocumentSearchQuery filters documents by title or content (case-insensitive)
type DocumentSearchQuery struct {
	Query string
}

func (s DocumentSearchQuery) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Query + "%"
	return db.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
}

// ByDocumentTitle filters documents by partial title match
type ByDocumentTitle struct {
	Title string
}

func (s ByDocumentTitle) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Title + "%"
	return db.Where("title ILIKE ?", pattern)
}

// ByTenant scopes documents to one tenant
type ByTenant struct {
	Tenant string
}

func (s ByTenant) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tenant = ?", s.Tenant)
}

// ByAssignee filters documents by their assignee
type ByAssignee struct {
	Assignee string
}

func (s ByAssignee) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assignee = ?", s.Assignee)
}
