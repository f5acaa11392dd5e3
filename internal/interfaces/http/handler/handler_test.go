package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apporder "github.com/agripool/backend/internal/application/order"
	apppooling "github.com/agripool/backend/internal/application/pooling"
	appsupply "github.com/agripool/backend/internal/application/supply"
	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/supply"
	"github.com/agripool/backend/internal/infrastructure/cache"
	"github.com/agripool/backend/internal/infrastructure/persistence"
	"github.com/agripool/backend/internal/interfaces/http/middleware"
)

// testEnv wires the full HTTP stack against an in-memory database
type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

// testAuth populates JWT context keys from test headers, standing in for the
// real token middleware
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(middleware.JWTUserIDKey, userID)
		}
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(middleware.JWTRoleKey, role)
		}
		c.Next()
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&supply.SupplyEntry{},
		&grouplisting.GroupListing{},
		&grouplisting.Membership{},
		&order.SubOrder{},
	)
	require.NoError(t, err)

	logger := zap.NewNop()

	supplySvc := appsupply.NewService(persistence.NewGormSupplyEntryRepository(db), logger)
	poolingSvc := apppooling.NewService(persistence.NewGormPoolingTransactionScope(db), logger)
	poolingSvc.SetIdempotencyStore(cache.NewInMemoryIdempotencyStore())
	orderSvc := apporder.NewService(persistence.NewGormOrderTransactionScope(db), logger)

	router := gin.New()
	router.Use(testAuth())
	api := router.Group("/api/v1")
	NewSupplyEntryHandler(supplySvc).RegisterRoutes(api)
	NewGroupListingHandler(poolingSvc).RegisterRoutes(api)
	NewOrderHandler(orderSvc).RegisterRoutes(api)
	NewSystemHandler(nil).RegisterRoutes(api)

	return &testEnv{db: db, router: router}
}

type testRequest struct {
	method  string
	path    string
	userID  string
	role    string
	body    any
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, req testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq := httptest.NewRequest(req.method, req.path, reader)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.userID != "" {
		httpReq.Header.Set("X-Test-User", req.userID)
	}
	if req.role != "" {
		httpReq.Header.Set("X-Test-Role", req.role)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httpReq)
	return w
}

// decodeData unmarshals the data payload of a success envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got %s", w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// createEntry registers a supply entry through the API and returns its response
func (e *testEnv) createEntry(t *testing.T, farmerID uuid.UUID, crop, location string, qty, price int64) appsupply.SupplyEntryResponse {
	t.Helper()

	w := e.do(t, testRequest{
		method: http.MethodPost,
		path:   "/api/v1/supply-entries",
		userID: farmerID.String(),
		role:   "farmer",
		body: map[string]any{
			"crop_name":   crop,
			"location":    location,
			"quantity_kg": qty,
			"price_per_kg": price,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry appsupply.SupplyEntryResponse
	decodeData(t, w, &entry)
	return entry
}
