// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

// ProductService reads and deletes extracted products. Products are only
// created by ExtractionService and never updated.
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) ListProducts(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := forUser(s.db.WithContext(ctx).Model(&models.Product{}), userID)

	if params.Platform != "" {
		query = query.Where("platform = ?", params.Platform)
	}
	if params.Search != "" {
		pattern := likePattern(params.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "count products", Err: err}
	}

	allowedSortFields := []string{"created_at", "price", "rating", "viral_score", "name"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "list products", Err: err}
	}

	return products, total, nil
}

func (s *ProductService) GetProduct(ctx context.Context, userID, id string) (*models.Product, error) {
	productID, err := parseID("product", id)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := forUser(s.db.WithContext(ctx), userID).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product", id)
		}
		return nil, &PersistenceError{Op: "load product", Err: err}
	}
	return &product, nil
}

// DeleteProduct refuses while scripts still reference the product.
func (s *ProductService) DeleteProduct(ctx context.Context, userID, id string) error {
	productID, err := parseID("product", id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := forUser(tx, userID).First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("product", id)
			}
			return &PersistenceError{Op: "load product", Err: err}
		}

		var scripts int64
		if err := tx.Model(&models.Script{}).Where("product_id = ?", productID).Count(&scripts).Error; err != nil {
			return &PersistenceError{Op: "count scripts", Err: err}
		}
		if scripts > 0 {
			return &ConflictError{Resource: "product", Dependents: scripts, Dependent: "scripts"}
		}

		if err := tx.Delete(&product).Error; err != nil {
			return &PersistenceError{Op: "delete product", Err: err}
		}
		return nil
	})
}

// forUser scopes a query to one owner. An empty userID is only passed when
// identity checks are off and the caller did not name an owner.
func forUser(db *gorm.DB, userID string) *gorm.DB {
	if userID == "" {
		return db
	}
	return db.Where("user_id = ?", userID)
}

func likePattern(search string) string {
	replacer := strings.NewReplacer("%", "", "_", "")
	return "%" + strings.ToLower(replacer.Replace(search)) + "%"
}
