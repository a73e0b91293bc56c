// internal/models/product.go
package models

import (
	"math"

	"gorm.io/datatypes"
)

// Shown when neither the page nor the model produced an image.
const PlaceholderProductImage = "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=800"

type Product struct {
	BaseModel
	UserID         string                      `json:"userId" gorm:"size:128;not null;index"`
	Name           string                      `json:"name" gorm:"size:500;not null"`
	Description    string                      `json:"description" gorm:"type:text"`
	Price          int64                       `json:"price" gorm:"not null"`
	OriginalPrice  *int64                      `json:"originalPrice,omitempty"`
	Discount       *int                        `json:"discount,omitempty"`
	Rating         float64                     `json:"rating" gorm:"default:0"`
	SoldCount      string                      `json:"soldCount" gorm:"size:50"`
	Images         datatypes.JSONSlice[string] `json:"images"`
	Platform       Platform                    `json:"platform" gorm:"type:varchar(20);not null;index"`
	ProductURL     string                      `json:"productUrl" gorm:"type:text;not null"`
	Category       string                      `json:"category" gorm:"size:100"`
	KeyFeatures    datatypes.JSONSlice[string] `json:"keyFeatures"`
	ViralScore     float64                     `json:"viralScore" gorm:"default:0"`
	USP            datatypes.JSONSlice[string] `json:"usp"`
	ContentAngles  datatypes.JSONSlice[string] `json:"contentAngles"`
	ScrapingMethod ScrapingMethod              `json:"scrapingMethod" gorm:"type:varchar(20);not null"`
}

// ComputeDiscount returns the whole-number percentage off the original
// price, or nil when there is no markdown.
func ComputeDiscount(price int64, originalPrice *int64) *int {
	if originalPrice == nil || *originalPrice <= 0 || *originalPrice <= price {
		return nil
	}
	d := int(math.Round(float64(*originalPrice-price) / float64(*originalPrice) * 100))
	return &d
}

// Normalize enforces the record invariants before the first write.
func (p *Product) Normalize() {
	p.Discount = ComputeDiscount(p.Price, p.OriginalPrice)
	if p.Rating < 0 {
		p.Rating = 0
	}
	if p.Rating > 5 {
		p.Rating = 5
	}
	if p.ViralScore < 0 {
		p.ViralScore = 0
	}
	if p.ViralScore > 10 {
		p.ViralScore = 10
	}
	if len(p.Images) == 0 {
		p.Images = datatypes.JSONSlice[string]{PlaceholderProductImage}
	}
	if p.SoldCount == "" {
		p.SoldCount = "0"
	}
}
