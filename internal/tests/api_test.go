// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/router"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

const apiUser = "user-1"

type APITestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	queue     *queue.MemoryQueue
	worker    *services.RenderWorker
	scraper   *FakeScraper
	completer *FakeCompleter
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize())
}

func (suite *APITestSuite) SetupTest() {
	suite.build(100)
}

func (suite *APITestSuite) TearDownTest() {
	utils.SetJWTSecret("", "")
	suite.queue.Close()
}

// build wires the full stack against an in-memory database with the given
// signup bonus.
func (suite *APITestSuite) build(signupBonus int) {
	if suite.queue != nil {
		suite.queue.Close()
	}

	t := suite.T()
	suite.db = NewTestDB(t)
	suite.scraper = &FakeScraper{Result: ScrapedSpeaker()}
	suite.completer = NewFakeCompleter()
	suite.queue = queue.NewMemoryQueue(16)

	cfg := &config.Config{
		Credits: CreditsConfig(signupBonus),
		Render:  RenderConfig(),
		Storage: config.StorageConfig{LocalDir: t.TempDir(), PublicBaseURL: "http://localhost:3001/media"},
		I18n:    config.I18nConfig{DefaultLocale: "en"},
	}

	storage, err := services.NewStorageService(cfg.AWS, cfg.Storage)
	require.NoError(t, err)

	publisher := events.NoopPublisher{}
	enricher := ai.NewEnricher(suite.completer, time.Second)
	credits := services.NewCreditService(suite.db, cfg.Credits, publisher)
	suite.worker = services.NewRenderWorker(suite.db, suite.queue,
		services.NewStoryboardRenderer(storage, 0), publisher, cfg.Render)

	suite.router = router.Initialize(cfg, &router.Dependencies{
		DB:         suite.db,
		Queue:      suite.queue,
		Credits:    credits,
		Extraction: services.NewExtractionService(suite.db, credits, suite.scraper, enricher, publisher),
		Products:   services.NewProductService(suite.db),
		Scripts:    services.NewScriptService(suite.db, credits, enricher, publisher),
		Videos:     services.NewVideoService(suite.db, credits, suite.queue, storage, publisher),
		Payments:   services.NewPaymentService(credits, nil, cfg.Payment),
		Analytics:  services.NewAnalyticsService(suite.db, credits),
	})
}

func (suite *APITestSuite) do(method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	return w, response
}

func data(response map[string]interface{}) map[string]interface{} {
	return response["data"].(map[string]interface{})
}

func errorCode(response map[string]interface{}) string {
	return response["error"].(map[string]interface{})["code"].(string)
}

func (suite *APITestSuite) extract() string {
	w, response := suite.do("POST", "/api/extract-product", map[string]interface{}{
		"url":    "https://www.tokopedia.com/shop/mini-speaker-x2",
		"userId": apiUser,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	return data(response)["product"].(map[string]interface{})["id"].(string)
}

func (suite *APITestSuite) generateScript(productID string) map[string]interface{} {
	w, response := suite.do("POST", "/api/generate-script", map[string]interface{}{
		"userId":    apiUser,
		"productId": productID,
		"framework": "AIDA",
		"platform":  "tiktok",
		"tone":      "casual",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	return data(response)["script"].(map[string]interface{})
}

func (suite *APITestSuite) TestContentPipeline() {
	productID := suite.extract()

	script := suite.generateScript(productID)
	assert.Equal(suite.T(), "00:35", script["totalDuration"])
	assert.Len(suite.T(), script["modules"], 4)

	w, response := suite.do("POST", "/api/generate-video", map[string]interface{}{
		"userId":   apiUser,
		"scriptId": script["id"],
		"style":    "faceless",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	result := data(response)
	video := result["video"].(map[string]interface{})
	assert.Equal(suite.T(), "processing", video["status"])
	assert.Equal(suite.T(), "00:35", video["duration"])
	assert.Equal(suite.T(), "1080p", video["resolution"])
	assert.EqualValues(suite.T(), 50, result["creditsUsed"])
	assert.EqualValues(suite.T(), 20, result["creditsRemaining"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := suite.queue.Dequeue(ctx)
	require.NoError(suite.T(), err)
	suite.worker.Process(ctx, job)

	w, response = suite.do("GET", "/api/videos/"+apiUser+"/"+video["id"].(string), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	polled := data(response)["video"].(map[string]interface{})
	assert.Equal(suite.T(), "completed", polled["status"])
	assert.NotEmpty(suite.T(), polled["videoUrl"])

	w, response = suite.do("GET", "/api/videos/"+apiUser, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"], 1)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))

	w, response = suite.do("GET", "/api/analytics/"+apiUser, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	stats := data(response)["stats"].(map[string]interface{})
	assert.EqualValues(suite.T(), 80, stats["creditsSpent"])
}

func (suite *APITestSuite) TestInsufficientCreditsIs402() {
	suite.build(15)
	productID := suite.extract()

	w, response := suite.do("POST", "/api/generate-script", map[string]interface{}{
		"userId":    apiUser,
		"productId": productID,
		"framework": "PAS",
		"platform":  "shopee",
		"tone":      "casual",
	})

	assert.Equal(suite.T(), http.StatusPaymentRequired, w.Code)
	assert.False(suite.T(), response["success"].(bool))
	assert.EqualValues(suite.T(), 20, response["required"])
	assert.EqualValues(suite.T(), 5, response["available"])
	assert.Equal(suite.T(), "INSUFFICIENT_CREDITS", errorCode(response))

	var scripts int64
	suite.db.Model(&models.Script{}).Count(&scripts)
	assert.Zero(suite.T(), scripts)

	w, response = suite.do("GET", "/api/credits/"+apiUser, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.EqualValues(suite.T(), 5, data(response)["balance"])
}

func (suite *APITestSuite) TestScrapeTimeoutFallsBackToFabrication() {
	suite.build(15)
	suite.scraper.Err = ScrapeTimeout(models.PlatformShopee)

	w, response := suite.do("POST", "/api/extract-product", map[string]interface{}{
		"url":    "https://shopee.co.id/smartwatch-ultra-8-i.1.2",
		"userId": apiUser,
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	result := data(response)
	assert.Equal(suite.T(), "ai-fallback", result["scrapingMethod"])
	assert.EqualValues(suite.T(), 5, result["creditsRemaining"])
}

func (suite *APITestSuite) TestUnsupportedPlatform() {
	w, response := suite.do("POST", "/api/extract-product", map[string]interface{}{
		"url":    "https://www.amazon.com/dp/B000",
		"userId": apiUser,
	})
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "UNSUPPORTED_PLATFORM", errorCode(response))
}

func (suite *APITestSuite) TestMalformedAIResponseIs500() {
	productID := suite.extract()
	suite.completer.Set(KindScript, "I cannot help with that")

	w, response := suite.do("POST", "/api/generate-script", map[string]interface{}{
		"userId":    apiUser,
		"productId": productID,
		"framework": "BAB",
		"platform":  "youtube",
		"tone":      "professional",
	})
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "AI_ERROR", errorCode(response))

	w, response = suite.do("GET", "/api/credits/"+apiUser, nil)
	assert.EqualValues(suite.T(), 90, data(response)["balance"])
}

func (suite *APITestSuite) TestRequestValidation() {
	w, response := suite.do("POST", "/api/extract-product", map[string]interface{}{"userId": apiUser})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", errorCode(response))

	w, response = suite.do("POST", "/api/generate-script", map[string]interface{}{
		"userId":    apiUser,
		"productId": "6f1c1c8e-3c1a-4f7e-9d55-6d0f3f1f2a10",
		"framework": "SCAMPER",
		"platform":  "tiktok",
		"tone":      "casual",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", errorCode(response))
}

func (suite *APITestSuite) TestRegenerateModule() {
	script := suite.generateScript(suite.extract())
	module := script["modules"].([]interface{})[2].(map[string]interface{})

	w, response := suite.do("POST", "/api/regenerate-module", map[string]interface{}{
		"scriptId": script["id"],
		"moduleId": module["id"],
	})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	updated := data(response)["module"].(map[string]interface{})
	assert.Equal(suite.T(), RegeneratedContent, updated["content"])
	assert.Equal(suite.T(), module["type"], updated["type"])
	assert.Equal(suite.T(), module["duration"], updated["duration"])

	w, response = suite.do("POST", "/api/regenerate-module", map[string]interface{}{
		"scriptId": script["id"],
		"moduleId": "6f1c1c8e-3c1a-4f7e-9d55-6d0f3f1f2a10",
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", errorCode(response))
}

func (suite *APITestSuite) TestDeleteWithDependentsIsConflict() {
	productID := suite.extract()
	script := suite.generateScript(productID)

	w, response := suite.do("DELETE", "/api/products/"+productID, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFLICT", errorCode(response))

	w, _ = suite.do("DELETE", "/api/scripts/"+script["id"].(string), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do("DELETE", "/api/products/"+productID, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, response = suite.do("GET", "/api/products/"+apiUser, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Empty(suite.T(), response["data"])
}

func (suite *APITestSuite) TestIdentityTokens() {
	utils.SetJWTSecret("test-secret", "")

	w, _ := suite.do("GET", "/api/products/"+apiUser, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	other, err := utils.GenerateIdentityToken("user-2", time.Hour)
	require.NoError(suite.T(), err)
	w, response := suite.do("GET", "/api/products/"+apiUser, nil, "Authorization", "Bearer "+other)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", errorCode(response))

	own, err := utils.GenerateIdentityToken(apiUser, time.Hour)
	require.NoError(suite.T(), err)
	w, _ = suite.do("GET", "/api/products/"+apiUser, nil, "Authorization", "Bearer "+own)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// The token fills in a missing userId.
	w, response = suite.do("POST", "/api/extract-product",
		map[string]interface{}{"url": "https://www.tokopedia.com/shop/mini-speaker-x2"},
		"Authorization", "Bearer "+own)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), apiUser, data(response)["product"].(map[string]interface{})["userId"])
}

func (suite *APITestSuite) TestTopUpDisabledWithoutStripe() {
	w, response := suite.do("POST", "/api/credits/topup", map[string]interface{}{
		"userId":    apiUser,
		"packageId": "starter",
	})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	assert.Equal(suite.T(), "PAYMENTS_DISABLED", errorCode(response))

	w, response = suite.do("GET", "/api/credit-packages", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), data(response)["packages"], 3)
}

func (suite *APITestSuite) TestLocalizedErrors() {
	w, response := suite.do("DELETE", "/api/videos/6f1c1c8e-3c1a-4f7e-9d55-6d0f3f1f2a10", nil,
		"Accept-Language", "id-ID,id;q=0.9")
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	message := response["error"].(map[string]interface{})["message"].(string)
	assert.Equal(suite.T(), i18n.T("id", i18n.KeyVideoNotFound), message)
}

func (suite *APITestSuite) TestStorageFailureHidesDriverError() {
	require.NoError(suite.T(), suite.db.Callback().Create().Before("gorm:create").
		Register("test:fail_products", func(db *gorm.DB) {
			if db.Statement.Table == "products" {
				db.AddError(errors.New("pq: could not extend file base/16384/2619"))
			}
		}))

	w, response := suite.do("POST", "/api/extract-product", map[string]interface{}{
		"url":    "https://www.tokopedia.com/shop/mini-speaker-x2",
		"userId": apiUser,
	})
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "INTERNAL_ERROR", errorCode(response))
	assert.NotContains(suite.T(), response["error"].(map[string]interface{}), "details")
	assert.NotContains(suite.T(), w.Body.String(), "could not extend file")

	w, response = suite.do("GET", "/api/credits/"+apiUser, nil)
	assert.EqualValues(suite.T(), 100, data(response)["balance"])
}

func (suite *APITestSuite) TestHealth() {
	w, response := suite.do("GET", "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "healthy", response["status"])
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
