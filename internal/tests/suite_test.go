// internal/tests/suite_test.go
package tests

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/storefront-backend/internal/cache"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/router"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const (
	webhookSecret = "whsec_suite"
	customerPass  = "Secret123!"
	adminPass     = "Admin123!"
	adminEmail    = "admin@example.com"
	customerEmail = "shopper@example.com"
	sessionCookie = "session_id"
	allowedOrigin = "https://shop.example.com"
)

// stubProcessor keeps intents in memory and verifies webhooks with the
// real Stripe signature check.
type stubProcessor struct {
	*services.StripeProcessor

	mu      sync.Mutex
	intents map[string]*services.PaymentIntent
	byKey   map[string]string
	calls   int
}

func newStubProcessor(cfg config.PaymentConfig) *stubProcessor {
	return &stubProcessor{
		StripeProcessor: services.NewStripeProcessor(cfg),
		intents:         make(map[string]*services.PaymentIntent),
		byKey:           make(map[string]string),
	}
}

func (p *stubProcessor) CreateIntent(ctx context.Context, params services.CreateIntentParams) (*services.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if id, ok := p.byKey[params.IdempotencyKey]; ok {
		copied := *p.intents[id]
		return &copied, nil
	}
	id := fmt.Sprintf("pi_suite_%d", len(p.intents)+1)
	p.intents[id] = &services.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       params.AmountCents,
		Currency:     params.Currency,
		Metadata:     params.Metadata,
	}
	p.byKey[params.IdempotencyKey] = id
	copied := *p.intents[id]
	return &copied, nil
}

func (p *stubProcessor) GetIntent(ctx context.Context, intentID string) (*services.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	intent, ok := p.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	copied := *intent
	return &copied, nil
}

func (p *stubProcessor) Refund(ctx context.Context, params services.RefundParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return "re_" + params.IntentID, nil
}

func (p *stubProcessor) succeed(intentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[intentID].Status = stripe.PaymentIntentStatusSucceeded
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// auditRecorder captures audit entries written by the middleware.
type auditRecorder struct {
	repository.Store

	mu   sync.Mutex
	logs []models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

func (a *auditRecorder) find(action string) (models.AuditLog, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, log := range a.logs {
		if log.Action == action {
			return log, true
		}
	}
	return models.AuditLog{}, false
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type requestOption func(*http.Request)

func withCookie(cookie *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

type StorefrontSuite struct {
	suite.Suite

	ctx       context.Context
	cfg       *config.Config
	store     *repository.MemoryStore
	audit     *auditRecorder
	processor *stubProcessor
	services  *router.Services
	router    *gin.Engine
	admin     *models.User
}

func (s *StorefrontSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize("../i18n/locales", "en"))
}

func (s *StorefrontSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = &config.Config{
		Environment: "test",
		Storage:     config.StorageConfig{Driver: "memory"},
		JWT:         config.JWTConfig{SecretKey: "suite-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Session:     config.SessionConfig{TTLHours: 168, CookieName: sessionCookie, CaptchaTTL: 10},
		Payment: config.PaymentConfig{
			StripeSecretKey:      "sk_test_suite",
			StripePublishableKey: "pk_test_suite",
			StripeWebhookSecret:  webhookSecret,
			Currency:             "usd",
			TimeoutSeconds:       2,
		},
		Frontend: config.FrontendConfig{BaseURL: allowedOrigin, AllowedOrigins: []string{allowedOrigin}},
		Security: config.SecurityConfig{
			LoginCaptchaThreshold: 3,
			LoginLockThreshold:    5,
			LoginLockMinutes:      15,
			RateLimitPerSecond:    1000,
			RateLimitBurst:        1000,
		},
	}
	utils.SetJWTSecret(s.cfg.JWT.SecretKey)

	s.store = repository.NewMemoryStore()
	s.audit = &auditRecorder{Store: s.store}
	s.processor = newStubProcessor(s.cfg.Payment)

	storage, err := services.NewStorageService(s.cfg)
	s.Require().NoError(err)

	s.services = router.NewServices(s.cfg, router.Dependencies{
		Store:       s.audit,
		Processor:   s.processor,
		Idempotency: cache.NewMemoryIdempotencyStore(0),
		Storage:     storage,
	})
	s.router = router.Initialize(s.cfg, s.services)

	s.admin = &models.User{Email: adminEmail, FirstName: "Store", LastName: "Admin", Role: models.UserRoleAdmin}
	s.Require().NoError(s.admin.SetPassword(adminPass))
	s.Require().NoError(s.store.CreateUser(s.ctx, s.admin))
}

func (s *StorefrontSuite) TearDownTest() {
	s.services.Limiters.Stop()
}

func (s *StorefrontSuite) do(method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *StorefrontSuite) decode(w *httptest.ResponseRecorder, out interface{}) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		s.Require().NoError(json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *StorefrontSuite) sessionFrom(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			return cookie
		}
	}
	s.FailNow("no session cookie in response")
	return nil
}

type authData struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (s *StorefrontSuite) register(email string) (*http.Cookie, authData) {
	w := s.do(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":      email,
		"password":   customerPass,
		"first_name": "Jane",
		"last_name":  "Shopper",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data authData
	s.decode(w, &data)
	return s.sessionFrom(w), data
}

func (s *StorefrontSuite) login(email, password string) (*http.Cookie, authData) {
	w := s.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data authData
	s.decode(w, &data)
	return s.sessionFrom(w), data
}

type productData struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func (s *StorefrontSuite) createProduct(adminSession *http.Cookie, name, sku, price string, stock int) productData {
	w := s.do(http.MethodPost, "/v1/admin/products", map[string]interface{}{
		"name":        name,
		"description": name + " description",
		"price":       price,
		"sku":         sku,
		"stock":       stock,
	}, withCookie(adminSession))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Product productData `json:"product"`
	}
	s.decode(w, &data)
	return data.Product
}

func (s *StorefrontSuite) createAddress(session *http.Cookie) string {
	w := s.do(http.MethodPost, "/v1/addresses", map[string]interface{}{
		"address_line1": "1 Market St",
		"city":          "San Francisco",
		"state":         "CA",
		"postal_code":   "94105",
		"country":       "US",
	}, withCookie(session))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Address struct {
			ID        string `json:"id"`
			IsDefault bool   `json:"is_default"`
		} `json:"address"`
	}
	s.decode(w, &data)
	s.True(data.Address.IsDefault)
	return data.Address.ID
}

func (s *StorefrontSuite) addToCart(session *http.Cookie, productID string, quantity int) {
	w := s.do(http.MethodPost, "/v1/cart/items", map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	}, withCookie(session))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func signWebhook(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", at.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
