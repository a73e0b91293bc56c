// internal/services/helpers_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/tests"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

const testUser = "user-1"

// recorder keeps every published event in memory.
type recorder struct {
	events chan events.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan events.Event, 64)}
}

func (r *recorder) Publish(ctx context.Context, event events.Event) error {
	select {
	case r.events <- event:
	default:
	}
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	var out []string
	for {
		select {
		case e := <-r.events:
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

type harness struct {
	db         *gorm.DB
	credits    *CreditService
	completer  *tests.FakeCompleter
	scraper    *tests.FakeScraper
	queue      *queue.MemoryQueue
	storage    *StorageService
	events     *recorder
	extraction *ExtractionService
	scripts    *ScriptService
	videos     *VideoService
	products   *ProductService
}

func newHarness(t *testing.T, signupBonus int) *harness {
	t.Helper()

	db := tests.NewTestDB(t)
	rec := newRecorder()
	completer := tests.NewFakeCompleter()
	fakeScraper := &tests.FakeScraper{Result: tests.ScrapedSpeaker()}
	enricher := ai.NewEnricher(completer, time.Second)
	q := queue.NewMemoryQueue(16)
	t.Cleanup(func() { q.Close() })

	storage, err := NewStorageService(config.AWSConfig{}, config.StorageConfig{
		LocalDir:      t.TempDir(),
		PublicBaseURL: "http://localhost:3001/media",
	})
	require.NoError(t, err)

	credits := NewCreditService(db, tests.CreditsConfig(signupBonus), rec)

	return &harness{
		db:         db,
		credits:    credits,
		completer:  completer,
		scraper:    fakeScraper,
		queue:      q,
		storage:    storage,
		events:     rec,
		extraction: NewExtractionService(db, credits, fakeScraper, enricher, rec),
		scripts:    NewScriptService(db, credits, enricher, rec),
		videos:     NewVideoService(db, credits, q, storage, rec),
		products:   NewProductService(db),
	}
}

func (h *harness) balance(t *testing.T, userID string) int {
	t.Helper()
	balance, err := h.credits.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func (h *harness) extract(t *testing.T, userID string) *models.Product {
	t.Helper()
	result, err := h.extraction.ExtractProduct(context.Background(), &ExtractProductRequest{
		URL:    "https://www.tokopedia.com/shop/mini-speaker-x2",
		UserID: userID,
	})
	require.NoError(t, err)
	return result.Product
}

func (h *harness) generateScript(t *testing.T, userID string, productID string) *models.Script {
	t.Helper()
	result, err := h.scripts.GenerateScript(context.Background(), &GenerateScriptRequest{
		UserID:    userID,
		ProductID: productID,
		Framework: models.FrameworkAIDA,
		Platform:  models.ContentPlatformTikTok,
		Tone:      models.ToneCasual,
	})
	require.NoError(t, err)
	return result.Script
}

func (h *harness) pendingReservations(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.CreditReservation{}).
		Where("status = ?", models.ReservationStatusPending).Count(&n).Error)
	return n
}

var errDiskFull = errors.New("disk full")

// failInserts makes every insert into table fail, as a full disk would.
func (h *harness) failInserts(t *testing.T, table string) {
	t.Helper()
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").
		Register("test:fail_"+table, func(db *gorm.DB) {
			if db.Statement.Table == table {
				db.AddError(errDiskFull)
			}
		}))
}

func paginationFor(search string) utils.PaginationParams {
	return utils.PaginationParams{Search: search}.Normalize()
}
