// internal/services/video_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

// VideoService accepts video requests and hands them to the render workers.
// Credits are committed when the request is accepted, not when the render
// finishes.
type VideoService struct {
	db      *gorm.DB
	credits *CreditService
	queue   queue.Queue
	storage *StorageService
	events  events.Publisher
}

type GenerateVideoRequest struct {
	UserID   string            `json:"userId" validate:"required,user_id"`
	ScriptID string            `json:"scriptId" validate:"required,uuid"`
	Style    models.VideoStyle `json:"style" validate:"required,oneof=faceless avatar real"`
}

type VideoResult struct {
	Video            *models.Video `json:"video"`
	CreditsUsed      int           `json:"creditsUsed"`
	CreditsRemaining int           `json:"creditsRemaining"`
}

func NewVideoService(db *gorm.DB, credits *CreditService, q queue.Queue, storage *StorageService, publisher events.Publisher) *VideoService {
	return &VideoService{
		db:      db,
		credits: credits,
		queue:   q,
		storage: storage,
		events:  publisher,
	}
}

func (s *VideoService) GenerateVideo(ctx context.Context, req *GenerateVideoRequest) (*VideoResult, error) {
	scriptID, err := parseID("script", req.ScriptID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.credits.Reserve(ctx, req.UserID, models.CreditOperationVideo)
	if err != nil {
		return nil, err
	}

	var video *models.Video
	var remaining int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var script models.Script
		if err := tx.Where("user_id = ?", req.UserID).First(&script, "id = ?", scriptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("script", req.ScriptID)
			}
			return &PersistenceError{Op: "load script", Err: err}
		}

		video = &models.Video{
			UserID:       req.UserID,
			ScriptID:     script.ID,
			Title:        "Video: " + script.Title,
			Style:        req.Style,
			Status:       models.VideoStatusProcessing,
			Duration:     script.TotalDuration,
			Resolution:   models.Resolution1080p,
			ThumbnailURL: models.PlaceholderVideoThumbnail,
		}
		if err := tx.Create(video).Error; err != nil {
			return &PersistenceError{Op: "save video", Err: err}
		}
		if err := s.credits.CommitTx(tx, reservation); err != nil {
			return err
		}
		var err error
		remaining, err = s.credits.balanceTx(tx, req.UserID)
		return err
	})
	if err != nil {
		s.credits.releaseQuietly(reservation)
		return nil, err
	}

	s.credits.emitCommitted(ctx, reservation, video.ID.String())

	job := queue.RenderJob{VideoID: video.ID.String(), UserID: req.UserID, EnqueuedAt: time.Now()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// Nothing will ever render this video, so the debit is given back.
		logrus.WithError(err).WithField("video_id", video.ID).Error("Failed to enqueue render job")
		s.failUndeliverable(video, reservation, "render queue unavailable")
		return nil, fmt.Errorf("failed to queue video: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"video_id":  video.ID,
		"script_id": video.ScriptID,
		"style":     video.Style,
	}).Info("Video requested")

	events.Emit(ctx, s.events, events.Event{
		Type:      events.VideoRequested,
		UserID:    req.UserID,
		SubjectID: video.ID.String(),
		Payload:   map[string]interface{}{"scriptId": video.ScriptID.String(), "style": video.Style},
	})

	return &VideoResult{
		Video:            video,
		CreditsUsed:      reservation.Cost,
		CreditsRemaining: remaining,
	}, nil
}

func (s *VideoService) failUndeliverable(video *models.Video, reservation *models.CreditReservation, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := transitionVideo(s.db.WithContext(ctx), video.ID.String(), models.VideoStatusFailed, map[string]interface{}{
		"failure_reason": reason,
	}); err != nil {
		logrus.WithError(err).WithField("video_id", video.ID).Error("Failed to mark video failed")
	}
	if _, err := s.credits.Refund(ctx, reservation, reason); err != nil {
		logrus.WithError(err).WithField("video_id", video.ID).Error("Failed to refund video credits")
	}
}

func (s *VideoService) ListVideos(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Video, int64, error) {
	query := forUser(s.db.WithContext(ctx).Model(&models.Video{}), userID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "count videos", Err: err}
	}

	query = utils.ApplySort(query, params, []string{"created_at", "updated_at", "status"})
	query = utils.ApplyPagination(query, params)

	var videos []models.Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "list videos", Err: err}
	}
	return videos, total, nil
}

func (s *VideoService) GetVideo(ctx context.Context, userID, id string) (*models.Video, error) {
	videoID, err := parseID("video", id)
	if err != nil {
		return nil, err
	}

	var video models.Video
	if err := forUser(s.db.WithContext(ctx), userID).First(&video, "id = ?", videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("video", id)
		}
		return nil, &PersistenceError{Op: "load video", Err: err}
	}
	return &video, nil
}

// DeleteVideo removes the record and, best effort, its stored artifact. A
// render still in flight finds the record gone and drops its result.
func (s *VideoService) DeleteVideo(ctx context.Context, userID, id string) error {
	video, err := s.GetVideo(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(video).Error; err != nil {
		return &PersistenceError{Op: "delete video", Err: err}
	}

	if video.VideoURL != nil && s.storage != nil {
		if key := s.storage.KeyFromURL(*video.VideoURL); key != "" {
			if err := s.storage.Delete(ctx, key); err != nil {
				logrus.WithError(err).WithField("video_id", video.ID).Warn("Failed to delete render artifact")
			}
		}
	}
	return nil
}

// RecoverPending re-enqueues every video left in processing, which happens
// after a restart with the in-memory queue.
func (s *VideoService) RecoverPending(ctx context.Context) (int, error) {
	var pending []models.Video
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.VideoStatusProcessing).
		Order("created_at ASC").
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("failed to load processing videos: %w", err)
	}

	for i, video := range pending {
		job := queue.RenderJob{VideoID: video.ID.String(), UserID: video.UserID, EnqueuedAt: time.Now()}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return i, fmt.Errorf("failed to re-enqueue video %s: %w", video.ID, err)
		}
	}
	return len(pending), nil
}

// transitionVideo applies a status change only if the stored status allows
// it. It reports false when the video is gone or already moved on.
func transitionVideo(db *gorm.DB, id string, next models.VideoStatus, fields map[string]interface{}) (bool, error) {
	var from []models.VideoStatus
	for _, status := range []models.VideoStatus{models.VideoStatusRequested, models.VideoStatusProcessing} {
		if status.CanTransitionTo(next) {
			from = append(from, status)
		}
	}
	if len(from) == 0 {
		return false, fmt.Errorf("no status can move to %s", next)
	}

	updates := map[string]interface{}{"status": next}
	for k, v := range fields {
		updates[k] = v
	}

	result := db.Model(&models.Video{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to move video to %s: %w", next, result.Error)
	}
	return result.RowsAffected == 1, nil
}
