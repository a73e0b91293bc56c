// internal/models/video.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const PlaceholderVideoThumbnail = "https://images.unsplash.com/photo-1611162617474-5b21e879e113?w=800&q=80"

type VideoStatus string

const (
	VideoStatusRequested  VideoStatus = "requested"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

var videoTransitions = map[VideoStatus][]VideoStatus{
	VideoStatusRequested:  {VideoStatusProcessing, VideoStatusFailed},
	VideoStatusProcessing: {VideoStatusCompleted, VideoStatusFailed},
}

func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	for _, allowed := range videoTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type Video struct {
	BaseModel
	UserID         string            `json:"userId" gorm:"size:128;not null;index"`
	ScriptID       uuid.UUID         `json:"scriptId" gorm:"type:uuid;not null;index"`
	Title          string            `json:"title" gorm:"size:500;not null"`
	Style          VideoStyle        `json:"style" gorm:"type:varchar(20);not null"`
	Status         VideoStatus       `json:"status" gorm:"type:varchar(20);not null;index"`
	Duration       string            `json:"duration" gorm:"size:10"`
	Resolution     Resolution        `json:"resolution" gorm:"type:varchar(10);default:'1080p'"`
	ThumbnailURL   string            `json:"thumbnailUrl" gorm:"type:text"`
	VideoURL       *string           `json:"videoUrl,omitempty" gorm:"type:text"`
	FailureReason  string            `json:"failureReason,omitempty" gorm:"type:text"`
	RenderAttempts int               `json:"renderAttempts" gorm:"default:0"`
	RenderMetadata datatypes.JSONMap `json:"renderMetadata,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}
