// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IDs are generated client side so the schema does not depend on a
// database specific uuid default.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums
type Platform string

const (
	PlatformShopee    Platform = "shopee"
	PlatformTokopedia Platform = "tokopedia"
	PlatformTikTok    Platform = "tiktok"
	PlatformLazada    Platform = "lazada"
)

// Platforms in detection priority order.
var Platforms = []Platform{PlatformShopee, PlatformTokopedia, PlatformTikTok, PlatformLazada}

type ScrapingMethod string

const (
	ScrapingMethodBrowser    ScrapingMethod = "puppeteer"
	ScrapingMethodAIFallback ScrapingMethod = "ai-fallback"
)

type Framework string

const (
	FrameworkAIDA   Framework = "AIDA"
	FrameworkPAS    Framework = "PAS"
	FrameworkBAB    Framework = "BAB"
	FrameworkPASTOR Framework = "PASTOR"
	Framework4Ps    Framework = "4Ps"
)

type ContentPlatform string

const (
	ContentPlatformTikTok    ContentPlatform = "tiktok"
	ContentPlatformShopee    ContentPlatform = "shopee"
	ContentPlatformInstagram ContentPlatform = "instagram"
	ContentPlatformYouTube   ContentPlatform = "youtube"
)

type Tone string

const (
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneEnergetic    Tone = "energetic"
	ToneEmpathetic   Tone = "empathetic"
)

type ModuleType string

const (
	ModuleTypeHook        ModuleType = "hook"
	ModuleTypeProblem     ModuleType = "problem"
	ModuleTypeSolution    ModuleType = "solution"
	ModuleTypeBenefit     ModuleType = "benefit"
	ModuleTypeSocialProof ModuleType = "social_proof"
	ModuleTypeCTA         ModuleType = "cta"
	ModuleTypeCustom      ModuleType = "custom"
)

func (t ModuleType) Valid() bool {
	switch t {
	case ModuleTypeHook, ModuleTypeProblem, ModuleTypeSolution, ModuleTypeBenefit,
		ModuleTypeSocialProof, ModuleTypeCTA, ModuleTypeCustom:
		return true
	}
	return false
}

type VideoStyle string

const (
	VideoStyleFaceless VideoStyle = "faceless"
	VideoStyleAvatar   VideoStyle = "avatar"
	VideoStyleReal     VideoStyle = "real"
)

type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4K"
)
