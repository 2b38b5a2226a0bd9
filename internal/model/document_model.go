package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type Document struct {
	Id       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title    string    `gorm:"type:varchar(255);not null"`
	Content  string    `gorm:"type:text"`
	Status   string    `gorm:"type:varchar(64);default:'open'"`
	Priority string    `gorm:"type:varchar(32)"`
	Assignee string    `gorm:"type:varchar(255)"`
	Tenant   string    `gorm:"type:varchar(128);not null;index"`
	// Written only by UpdateEmbedding once the consumer has computed the
	// vector; NULL until then.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt   `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}

type DocumentComment struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Body       string    `gorm:"type:text"`
	Author     string    `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (DocumentComment) TableName() string {
	return "document_comments"
}
