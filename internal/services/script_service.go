// internal/services/script_service.go
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

type ScriptService struct {
	db          *gorm.DB
	credits     *CreditService
	enricher    *ai.Enricher
	events      events.Publisher
	moduleLocks *keyedMutex
}

type GenerateScriptRequest struct {
	UserID    string                 `json:"userId" validate:"required,user_id"`
	ProductID string                 `json:"productId" validate:"required,uuid"`
	Framework models.Framework       `json:"framework" validate:"required,oneof=AIDA PAS BAB PASTOR 4Ps"`
	Platform  models.ContentPlatform `json:"platform" validate:"required,oneof=tiktok shopee instagram youtube"`
	Tone      models.Tone            `json:"tone" validate:"required,oneof=casual professional energetic empathetic"`
}

type RegenerateModuleRequest struct {
	ScriptID string `json:"scriptId" validate:"required,uuid"`
	ModuleID string `json:"moduleId" validate:"required,uuid"`
	UserID   string `json:"userId,omitempty" validate:"omitempty,user_id"`
}

type ScriptResult struct {
	Script           *models.Script `json:"script"`
	CreditsUsed      int            `json:"creditsUsed"`
	CreditsRemaining int            `json:"creditsRemaining"`
}

func NewScriptService(db *gorm.DB, credits *CreditService, enricher *ai.Enricher, publisher events.Publisher) *ScriptService {
	return &ScriptService{
		db:          db,
		credits:     credits,
		enricher:    enricher,
		events:      publisher,
		moduleLocks: newKeyedMutex(),
	}
}

func (s *ScriptService) GenerateScript(ctx context.Context, req *GenerateScriptRequest) (*ScriptResult, error) {
	reservation, err := s.credits.Reserve(ctx, req.UserID, models.CreditOperationScript)
	if err != nil {
		return nil, err
	}

	script, remaining, err := s.generate(ctx, req, reservation)
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"script_id": script.ID,
		"modules":   len(script.Modules),
		"duration":  script.TotalDuration,
	}).Info("Script generated")

	s.credits.emitCommitted(ctx, reservation, script.ID.String())
	events.Emit(ctx, s.events, events.Event{
		Type:      events.ScriptGenerated,
		UserID:    req.UserID,
		SubjectID: script.ID.String(),
		Payload: map[string]interface{}{
			"productId": script.ProductID.String(),
			"framework": script.Framework,
			"platform":  script.Platform,
			"score":     script.Score,
		},
	})

	return &ScriptResult{
		Script:           script,
		CreditsUsed:      reservation.Cost,
		CreditsRemaining: remaining,
	}, nil
}

func (s *ScriptService) generate(ctx context.Context, req *GenerateScriptRequest, reservation *models.CreditReservation) (*models.Script, int, error) {
	productID, err := parseID("product", req.ProductID)
	if err != nil {
		return nil, 0, err
	}

	var product models.Product
	if err := forUser(s.db.WithContext(ctx), req.UserID).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, notFound("product", req.ProductID)
		}
		return nil, 0, &PersistenceError{Op: "load product", Err: err}
	}

	draft, err := s.enricher.GenerateScript(ctx, ai.ScriptBrief{
		ProductName:     product.Name,
		Description:     product.Description,
		Price:           product.Price,
		ProductPlatform: product.Platform,
		Category:        product.Category,
		USP:             product.USP,
		Framework:       req.Framework,
		Platform:        req.Platform,
		Tone:            req.Tone,
	})
	if err != nil {
		return nil, 0, err
	}

	durations := make([]string, len(draft.Modules))
	modules := make([]models.ScriptModule, len(draft.Modules))
	for i, m := range draft.Modules {
		durations[i] = m.Duration
		modules[i] = models.ScriptModule{
			Type:     m.Type,
			Content:  m.Content,
			Duration: m.Duration,
			Order:    i,
		}
	}
	total, err := utils.SumDurations(durations)
	if err != nil {
		return nil, 0, &ai.EnrichmentError{Mode: ai.ModeScript, Reason: "bad module duration", Err: err}
	}
	totalSeconds, _ := utils.ParseDuration(total)

	script := &models.Script{
		UserID:        req.UserID,
		ProductID:     product.ID,
		Title:         draft.Title,
		Framework:     req.Framework,
		Platform:      req.Platform,
		Tone:          req.Tone,
		TotalDuration: total,
		Score:         scoreScript(draft, totalSeconds),
		Modules:       modules,
	}

	var remaining int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(script).Error; err != nil {
			return &PersistenceError{Op: "save script", Err: err}
		}
		if err := s.credits.CommitTx(tx, reservation); err != nil {
			return err
		}
		var err error
		remaining, err = s.credits.balanceTx(tx, req.UserID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return script, remaining, nil
}

// scoreScript prefers the model's own estimate and otherwise rates the
// structure: variety of module types, hook first, cta last and a
// short-form friendly length.
func scoreScript(draft *ai.ScriptDraft, totalSeconds int) int {
	if draft.Score != nil {
		return int(math.Round(*draft.Score))
	}

	score := 60
	seen := make(map[models.ModuleType]bool)
	for _, m := range draft.Modules {
		seen[m.Type] = true
	}
	score += 4 * len(seen)
	if draft.Modules[0].Type == models.ModuleTypeHook {
		score += 6
	}
	if draft.Modules[len(draft.Modules)-1].Type == models.ModuleTypeCTA {
		score += 6
	}
	if totalSeconds >= 15 && totalSeconds <= 60 {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (s *ScriptService) ListScripts(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Script, int64, error) {
	query := forUser(s.db.WithContext(ctx).Model(&models.Script{}), userID)
	if params.Platform != "" {
		query = query.Where("platform = ?", params.Platform)
	}
	if params.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", likePattern(params.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "count scripts", Err: err}
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "score", "title"})
	query = utils.ApplyPagination(query, params)

	var scripts []models.Script
	if err := query.Preload("Modules", orderedModules).Find(&scripts).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "list scripts", Err: err}
	}
	return scripts, total, nil
}

func (s *ScriptService) GetScript(ctx context.Context, userID, id string) (*models.Script, error) {
	scriptID, err := parseID("script", id)
	if err != nil {
		return nil, err
	}

	var script models.Script
	if err := forUser(s.db.WithContext(ctx), userID).
		Preload("Modules", orderedModules).
		First(&script, "id = ?", scriptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("script", id)
		}
		return nil, &PersistenceError{Op: "load script", Err: err}
	}
	return &script, nil
}

// DeleteScript removes a script and its modules. Scripts that still have
// videos are kept so no video points at a missing script.
func (s *ScriptService) DeleteScript(ctx context.Context, userID, id string) error {
	scriptID, err := parseID("script", id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var script models.Script
		if err := forUser(tx, userID).First(&script, "id = ?", scriptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("script", id)
			}
			return &PersistenceError{Op: "load script", Err: err}
		}

		var videos int64
		if err := tx.Model(&models.Video{}).Where("script_id = ?", scriptID).Count(&videos).Error; err != nil {
			return &PersistenceError{Op: "count videos", Err: err}
		}
		if videos > 0 {
			return &ConflictError{Resource: "script", Dependents: videos, Dependent: "videos"}
		}

		if err := tx.Where("script_id = ?", scriptID).Delete(&models.ScriptModule{}).Error; err != nil {
			return &PersistenceError{Op: "delete modules", Err: err}
		}
		if err := tx.Delete(&script).Error; err != nil {
			return &PersistenceError{Op: "delete script", Err: err}
		}
		return nil
	})
}

// RegenerateModule rewrites one module's content in place. Type, duration
// and order never change here. Calls for the same module run one at a time.
func (s *ScriptService) RegenerateModule(ctx context.Context, req *RegenerateModuleRequest) (*models.ScriptModule, error) {
	scriptID, err := parseID("script", req.ScriptID)
	if err != nil {
		return nil, err
	}
	moduleID, err := parseID("module", req.ModuleID)
	if err != nil {
		return nil, err
	}

	unlock := s.moduleLocks.Lock(moduleID.String())
	defer unlock()

	db := s.db.WithContext(ctx)

	var script models.Script
	if err := forUser(db, req.UserID).First(&script, "id = ?", scriptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("script", req.ScriptID)
		}
		return nil, &PersistenceError{Op: "load script", Err: err}
	}

	var module models.ScriptModule
	if err := db.First(&module, "id = ? AND script_id = ?", moduleID, scriptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("module", req.ModuleID)
		}
		return nil, &PersistenceError{Op: "load module", Err: err}
	}

	productName := script.Title
	var product models.Product
	if err := db.Unscoped().First(&product, "id = ?", script.ProductID).Error; err == nil {
		productName = product.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &PersistenceError{Op: "load product", Err: err}
	}

	var reservation *models.CreditReservation
	if s.credits.Cost(models.CreditOperationRegeneration) > 0 {
		if reservation, err = s.credits.Reserve(ctx, script.UserID, models.CreditOperationRegeneration); err != nil {
			return nil, err
		}
	}

	content, err := s.enricher.RegenerateModule(ctx, ai.ModuleBrief{
		ProductName:    productName,
		Type:           module.Type,
		Framework:      script.Framework,
		Platform:       script.Platform,
		Tone:           script.Tone,
		CurrentContent: module.Content,
	})
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&module).Update("content", content).Error; err != nil {
			return &PersistenceError{Op: "update module", Err: err}
		}
		if err := tx.Model(&models.Script{}).Where("id = ?", scriptID).
			Update("updated_at", time.Now()).Error; err != nil {
			return &PersistenceError{Op: "touch script", Err: err}
		}
		if reservation != nil {
			return s.credits.CommitTx(tx, reservation)
		}
		return nil
	})
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}
	module.Content = content

	events.Emit(ctx, s.events, events.Event{
		Type:      events.ModuleRegenerated,
		UserID:    script.UserID,
		SubjectID: module.ID.String(),
		Payload:   map[string]interface{}{"scriptId": script.ID.String(), "type": module.Type},
	})

	return &module, nil
}

func orderedModules(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func parseID(resource, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, notFound(resource, id)
	}
	return parsed, nil
}
