// internal/services/render_worker.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

// Renderer produces the playable artifact for a video.
type Renderer interface {
	Render(ctx context.Context, video *models.Video, script *models.Script) (*RenderOutput, error)
}

type RenderOutput struct {
	VideoURL     string
	ThumbnailURL string
	Metadata     map[string]interface{}
}

// StoryboardRenderer lays the script modules out on a timeline and stores
// the result as a manifest for the downstream video pipeline.
type StoryboardRenderer struct {
	storage *StorageService
	delay   time.Duration
}

func NewStoryboardRenderer(storage *StorageService, delay time.Duration) *StoryboardRenderer {
	return &StoryboardRenderer{storage: storage, delay: delay}
}

type storyboardScene struct {
	Order    int               `json:"order"`
	Type     models.ModuleType `json:"type"`
	Text     string            `json:"text"`
	Start    string            `json:"start"`
	Duration string            `json:"duration"`
}

type storyboard struct {
	VideoID    string            `json:"videoId"`
	Title      string            `json:"title"`
	Style      models.VideoStyle `json:"style"`
	Resolution models.Resolution `json:"resolution"`
	Duration   string            `json:"duration"`
	Scenes     []storyboardScene `json:"scenes"`
	RenderedAt time.Time         `json:"renderedAt"`
}

func (r *StoryboardRenderer) Render(ctx context.Context, video *models.Video, script *models.Script) (*RenderOutput, error) {
	if len(script.Modules) == 0 {
		return nil, errors.New("script has no modules")
	}

	board := storyboard{
		VideoID:    video.ID.String(),
		Title:      video.Title,
		Style:      video.Style,
		Resolution: video.Resolution,
		Duration:   video.Duration,
		RenderedAt: time.Now().UTC(),
	}

	offset := 0
	for _, m := range script.Modules {
		secs, err := utils.ParseDuration(m.Duration)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", m.Order, err)
		}
		board.Scenes = append(board.Scenes, storyboardScene{
			Order:    m.Order,
			Type:     m.Type,
			Text:     m.Content,
			Start:    utils.FormatDuration(offset),
			Duration: m.Duration,
		})
		offset += secs
	}

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	body, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode storyboard: %w", err)
	}

	upload, err := r.storage.Upload(ctx, renderKey(video.UserID, video.ID.String()), body, "application/json")
	if err != nil {
		return nil, err
	}

	return &RenderOutput{
		VideoURL:     upload.URL,
		ThumbnailURL: video.ThumbnailURL,
		Metadata: map[string]interface{}{
			"scenes":     len(board.Scenes),
			"storageKey": upload.Key,
			"bytes":      upload.Size,
		},
	}, nil
}

// RenderWorker drains the render queue with a fixed pool of goroutines and
// settles each video as completed or failed.
type RenderWorker struct {
	db       *gorm.DB
	queue    queue.Queue
	renderer Renderer
	events   events.Publisher
	cfg      config.RenderConfig
	wg       sync.WaitGroup
}

func NewRenderWorker(db *gorm.DB, q queue.Queue, renderer Renderer, publisher events.Publisher, cfg config.RenderConfig) *RenderWorker {
	return &RenderWorker{
		db:       db,
		queue:    q,
		renderer: renderer,
		events:   publisher,
		cfg:      cfg,
	}
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (w *RenderWorker) Start(ctx context.Context) {
	workers := w.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	logrus.WithField("workers", workers).Info("Render workers started")
}

func (w *RenderWorker) Wait() {
	w.wg.Wait()
}

func (w *RenderWorker) loop(ctx context.Context, id int) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			logrus.WithError(err).WithField("worker", id).Error("Failed to dequeue render job")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		w.Process(ctx, job)
	}
}

// Process runs one job to a terminal state, retrying the render up to
// MaxAttempts times. A shutdown mid-render leaves the video in processing
// for recovery on the next start.
func (w *RenderWorker) Process(ctx context.Context, job *queue.RenderJob) {
	log := logrus.WithFields(logrus.Fields{"video_id": job.VideoID, "user_id": job.UserID})
	db := w.db.WithContext(ctx)

	var video models.Video
	if err := db.First(&video, "id = ?", job.VideoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info("Video deleted before rendering, dropping job")
			return
		}
		log.WithError(err).Error("Failed to load video for rendering")
		return
	}
	if video.Status.IsTerminal() {
		log.WithField("status", video.Status).Debug("Video already settled, dropping job")
		return
	}

	var script models.Script
	if err := db.Unscoped().Preload("Modules", orderedModules).First(&script, "id = ?", video.ScriptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w.fail(ctx, &video, "script no longer exists")
			return
		}
		log.WithError(err).Error("Failed to load script for rendering")
		return
	}

	maxAttempts := w.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for video.RenderAttempts < maxAttempts {
		video.RenderAttempts++
		if err := db.Model(&models.Video{}).Where("id = ?", video.ID).
			Update("render_attempts", video.RenderAttempts).Error; err != nil {
			log.WithError(err).Warn("Failed to record render attempt")
		}

		out, err := w.renderer.Render(ctx, &video, &script)
		if err == nil {
			w.complete(ctx, &video, out)
			return
		}
		if ctx.Err() != nil {
			log.Info("Render interrupted by shutdown")
			return
		}

		lastErr = err
		log.WithError(err).WithField("attempt", video.RenderAttempts).Warn("Render attempt failed")

		if video.RenderAttempts < maxAttempts && w.cfg.RetryDelay > 0 {
			select {
			case <-time.After(w.cfg.RetryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	reason := "render attempts exhausted"
	if lastErr != nil {
		reason = fmt.Sprintf("render failed after %d attempts: %v", video.RenderAttempts, lastErr)
	}
	w.fail(ctx, &video, reason)
}

func (w *RenderWorker) complete(ctx context.Context, video *models.Video, out *RenderOutput) {
	now := time.Now()
	fields := map[string]interface{}{
		"video_url":       out.VideoURL,
		"render_metadata": datatypes.JSONMap(out.Metadata),
		"completed_at":    now,
		"failure_reason":  "",
	}
	if out.ThumbnailURL != "" {
		fields["thumbnail_url"] = out.ThumbnailURL
	}

	ok, err := transitionVideo(w.db.WithContext(ctx), video.ID.String(), models.VideoStatusCompleted, fields)
	if err != nil {
		logrus.WithError(err).WithField("video_id", video.ID).Error("Failed to complete video")
		return
	}
	if !ok {
		logrus.WithField("video_id", video.ID).Info("Video changed while rendering, result dropped")
		return
	}

	logrus.WithFields(logrus.Fields{
		"video_id": video.ID,
		"attempts": video.RenderAttempts,
	}).Info("Video completed")

	events.Emit(ctx, w.events, events.Event{
		Type:      events.VideoCompleted,
		UserID:    video.UserID,
		SubjectID: video.ID.String(),
		Payload:   map[string]interface{}{"videoUrl": out.VideoURL},
	})
}

func (w *RenderWorker) fail(ctx context.Context, video *models.Video, reason string) {
	ok, err := transitionVideo(w.db.WithContext(ctx), video.ID.String(), models.VideoStatusFailed, map[string]interface{}{
		"failure_reason": reason,
	})
	if err != nil {
		logrus.WithError(err).WithField("video_id", video.ID).Error("Failed to mark video failed")
		return
	}
	if !ok {
		return
	}

	logrus.WithFields(logrus.Fields{"video_id": video.ID, "reason": reason}).Warn("Video failed")
	events.Emit(ctx, w.events, events.Event{
		Type:      events.VideoFailed,
		UserID:    video.UserID,
		SubjectID: video.ID.String(),
		Payload:   map[string]interface{}{"reason": reason},
	})
}
