// internal/models/script.go
package models

import (
	"github.com/google/uuid"
)

type Script struct {
	BaseModel
	UserID        string          `json:"userId" gorm:"size:128;not null;index"`
	ProductID     uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	Title         string          `json:"title" gorm:"size:500;not null"`
	Framework     Framework       `json:"framework" gorm:"type:varchar(10);not null"`
	Platform      ContentPlatform `json:"platform" gorm:"type:varchar(20);not null"`
	Tone          Tone            `json:"tone" gorm:"type:varchar(20);not null"`
	TotalDuration string          `json:"totalDuration" gorm:"size:10"`
	Score         int             `json:"score" gorm:"default:0"`

	// Relationships
	Modules []ScriptModule `json:"modules" gorm:"foreignKey:ScriptID"`
}

// Order is stored as "position" since ORDER is reserved in SQL.
type ScriptModule struct {
	BaseModel
	ScriptID uuid.UUID  `json:"scriptId" gorm:"type:uuid;not null;index"`
	Type     ModuleType `json:"type" gorm:"type:varchar(20);not null"`
	Content  string     `json:"content" gorm:"type:text"`
	Duration string     `json:"duration" gorm:"size:10"`
	Order    int        `json:"order" gorm:"column:position;not null"`
}
