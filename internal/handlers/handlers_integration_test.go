package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"inventory/internal/auth"
	"inventory/internal/config"
	"inventory/internal/handlers"
	"inventory/internal/models"
	"inventory/internal/observability"
	"inventory/internal/revocation"
	"inventory/internal/server"
	"inventory/internal/services"
	"inventory/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test_jwt_secret"

type testEnv struct {
	app *fiber.App
	cfg *config.Config
}

// setupApp sets up a Fiber app for testing backed by an in-memory SQLite
// database unique to the test.
func setupApp(t *testing.T, withDenylist bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("STORE_DRIVER", config.DriverSQLite)
	v.Set("DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())))
	v.Set("SECRET_KEY", testSecret)
	v.Set("BCRYPT_COST", bcrypt.MinCost)
	v.Set("PAGINATION_DEFAULT_LIMIT", 20)
	v.Set("PAGINATION_MAX_LIMIT", 50)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	logger := zap.NewNop()
	store, err := storage.Open(ctx, cfg.Store, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	_, err = store.EnsureSchema(ctx)
	require.NoError(t, err)

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.AccessTokenTTL())
	require.NoError(t, err)
	metrics := observability.NewMetrics()

	deps := server.Deps{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics,
		AuthService:    services.NewAuthService(store.Users(), hasher, tokens, logger, metrics),
		ProductService: services.NewProductService(store.Products(), nil, logger),
		HealthChecks:   map[string]handlers.Pinger{"store": store},
	}
	if withDenylist {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		deps.Denylist = revocation.NewDenylist(rdb)
		t.Cleanup(func() { _ = deps.Denylist.Close() })
		deps.HealthChecks["redis"] = deps.Denylist
	}

	return &testEnv{app: server.New(deps), cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, raw := e.do(t, http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status)
	var token services.AccessToken
	require.NoError(t, json.Unmarshal(raw, &token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func (e *testEnv) registerAndLogin(t *testing.T, username, password string) string {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/register", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, status)
	return e.login(t, username, password)
}

func decodeError(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestInventoryWorkflow(t *testing.T) {
	env := setupApp(t, false)

	status, raw := env.do(t, http.MethodPost, "/register", "", map[string]string{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusCreated, status)
	var registerResp map[string]string
	require.NoError(t, json.Unmarshal(raw, &registerResp))
	assert.Equal(t, "User registered successfully", registerResp["message"])
	assert.Equal(t, "alice", registerResp["username"])

	status, raw = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	var loginResp services.AccessToken
	require.NoError(t, json.Unmarshal(raw, &loginResp))
	assert.Equal(t, "bearer", loginResp.TokenType)
	assert.True(t, loginResp.ExpiresAt.After(time.Now()))
	token := loginResp.AccessToken

	status, raw = env.do(t, http.MethodPost, "/products", token, map[string]interface{}{
		"name":        "Widget",
		"type":        "tool",
		"sku":         "W-1",
		"image_url":   "https://example.com/w.png",
		"description": "A widget",
		"quantity":    3,
		"price":       9.99,
	})
	require.Equal(t, http.StatusCreated, status)
	var createResp map[string]string
	require.NoError(t, json.Unmarshal(raw, &createResp))
	productID := createResp["product_id"]
	require.NotEmpty(t, productID)

	status, raw = env.do(t, http.MethodPut, "/products/"+productID+"/quantity", token, map[string]int{"quantity": 7})
	require.Equal(t, http.StatusOK, status)
	var updateResp map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &updateResp))
	assert.Equal(t, productID, updateResp["id"])
	assert.EqualValues(t, 7, updateResp["quantity"])

	status, raw = env.do(t, http.MethodGet, "/products", token, nil)
	require.Equal(t, http.StatusOK, status)
	var products []models.Product
	require.NoError(t, json.Unmarshal(raw, &products))
	require.Len(t, products, 1)
	assert.Equal(t, productID, products[0].ID)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, 7, products[0].Quantity)
	assert.Equal(t, 9.99, products[0].Price)
}

func TestRegister_Validation(t *testing.T) {
	env := setupApp(t, false)

	status, raw := env.do(t, http.MethodPost, "/register", "", map[string]string{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	body := decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["errors"], "username")
	assert.Contains(t, body["errors"], "password")

	// no body and no content type
	status, raw = env.do(t, http.MethodPost, "/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, raw)["code"])

	// 40 runes but 80 bytes, over the bcrypt input limit
	status, raw = env.do(t, http.MethodPost, "/register", "", map[string]string{"username": "alice", "password": strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusBadRequest, status)
	body = decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["errors"], "password")
}

func TestRegister_ShortCredentialsAccepted(t *testing.T) {
	env := setupApp(t, false)

	token := env.registerAndLogin(t, "ab", "x")
	assert.NotEmpty(t, token)
}

func TestLogin_UnsupportedContentType(t *testing.T) {
	env := setupApp(t, false)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, raw)["code"])
}

func TestRegister_Duplicate(t *testing.T) {
	env := setupApp(t, false)
	creds := map[string]string{"username": "alice", "password": "secret123"}

	status, _ := env.do(t, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusCreated, status)

	status, raw := env.do(t, http.MethodPost, "/register", "", map[string]string{"username": "alice", "password": "other-pass"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_USERNAME", decodeError(t, raw)["code"])

	// the first password still works
	status, _ = env.do(t, http.MethodPost, "/login", "", creds)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := setupApp(t, false)
	env.registerAndLogin(t, "alice", "secret123")

	wrongStatus, wrongRaw := env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "wrong-password"})
	unknownStatus, unknownRaw := env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "nobody", "password": "wrong-password"})

	assert.Equal(t, http.StatusBadRequest, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.JSONEq(t, string(wrongRaw), string(unknownRaw))
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, wrongRaw)["code"])
}

func TestLogin_FormBody(t *testing.T) {
	env := setupApp(t, false)
	env.registerAndLogin(t, "alice", "secret123")

	form := url.Values{"username": {"alice"}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var token services.AccessToken
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&token))
	assert.NotEmpty(t, token.AccessToken)
}

func TestProductEndpointsWithoutAuth(t *testing.T) {
	env := setupApp(t, false)

	tests := []struct {
		method string
		path   string
		token  string
		body   interface{}
	}{
		{http.MethodGet, "/products", "", nil},
		{http.MethodPost, "/products", "", map[string]interface{}{"name": "X", "sku": "X-1", "quantity": 1, "price": 1.0}},
		{http.MethodPut, "/products/abc/quantity", "", map[string]int{"quantity": 1}},
		{http.MethodGet, "/products", "not-a-jwt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, raw := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, raw)["code"])
		})
	}
}

func TestExpiredToken(t *testing.T) {
	env := setupApp(t, false)
	env.registerAndLogin(t, "alice", "secret123")

	past := time.Now().Add(-2 * env.cfg.Auth.AccessTokenTTL())
	issuer, err := auth.NewTokenManager(testSecret, "HS256", env.cfg.Auth.AccessTokenTTL(), auth.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	expired, _, err := issuer.Issue("alice")
	require.NoError(t, err)

	status, _ := env.do(t, http.MethodGet, "/products", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	forger, err := auth.NewTokenManager("another-secret", "HS256", time.Hour)
	require.NoError(t, err)
	forged, _, err := forger.Issue("alice")
	require.NoError(t, err)

	status, _ = env.do(t, http.MethodGet, "/products", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUpdateQuantity_Errors(t *testing.T) {
	env := setupApp(t, false)
	token := env.registerAndLogin(t, "alice", "secret123")

	status, raw := env.do(t, http.MethodPut, "/products/not-an-id/quantity", token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MALFORMED_IDENTIFIER", decodeError(t, raw)["code"])

	status, raw = env.do(t, http.MethodPut, "/products/00000000-0000-4000-8000-000000000000/quantity", token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw)["code"])

	status, _ = env.do(t, http.MethodPut, "/products/00000000-0000-4000-8000-000000000000/quantity", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateProduct_Validation(t *testing.T) {
	env := setupApp(t, false)
	token := env.registerAndLogin(t, "alice", "secret123")

	status, raw := env.do(t, http.MethodPost, "/products", token, map[string]interface{}{"name": "Widget"})
	assert.Equal(t, http.StatusBadRequest, status)
	body := decodeError(t, raw)
	assert.Contains(t, body["errors"], "sku")
	assert.Contains(t, body["errors"], "quantity")
	assert.Contains(t, body["errors"], "price")
}

func TestListProducts_Pagination(t *testing.T) {
	env := setupApp(t, false)
	token := env.registerAndLogin(t, "alice", "secret123")

	for i := 0; i < 15; i++ {
		sku := "EVEN"
		if i%2 == 1 {
			sku = "ODD"
		}
		status, _ := env.do(t, http.MethodPost, "/products", token, map[string]interface{}{
			"name": fmt.Sprintf("Product %d", i), "sku": sku, "quantity": i, "price": 1.5,
		})
		require.Equal(t, http.StatusCreated, status)
	}

	list := func(query string) []models.Product {
		status, raw := env.do(t, http.MethodGet, "/products"+query, token, nil)
		require.Equal(t, http.StatusOK, status)
		var products []models.Product
		require.NoError(t, json.Unmarshal(raw, &products))
		return products
	}

	first := list("?skip=0&limit=10")
	second := list("?skip=10&limit=10")
	assert.Len(t, first, 10)
	assert.Len(t, second, 5)

	seen := make(map[string]bool)
	for _, p := range append(first, second...) {
		assert.False(t, seen[p.ID], "product %s listed twice", p.ID)
		seen[p.ID] = true
	}

	assert.Len(t, list(""), 15)
	assert.Len(t, list("?limit=1000"), 15)
	assert.Empty(t, list("?skip=100"))
	assert.Empty(t, list("?limit=0"))
	assert.Len(t, list("?sku=ODD"), 7)

	for _, query := range []string{"?skip=-1", "?limit=-5", "?limit=abc"} {
		status, _ := env.do(t, http.MethodGet, "/products"+query, token, nil)
		assert.Equal(t, http.StatusBadRequest, status, query)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := setupApp(t, true)
	token := env.registerAndLogin(t, "alice", "secret123")

	status, _ := env.do(t, http.MethodGet, "/products", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/products", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// a fresh login is unaffected
	fresh := env.login(t, "alice", "secret123")
	status, _ = env.do(t, http.MethodGet, "/products", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogout_NotRegisteredWithoutDenylist(t *testing.T) {
	env := setupApp(t, false)
	token := env.registerAndLogin(t, "alice", "secret123")

	status, _ := env.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupApp(t, true)

	status, raw := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"status":"healthy"`)

	status, raw = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	var ready map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &ready))
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, map[string]interface{}{"store": "ok", "redis": "ok"}, ready["checks"])

	status, raw = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "inventory_http_requests_total")
}
