package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trustedhands/internal/config"
	handlers "trustedhands/internal/handlers/shared"
	"trustedhands/internal/middleware"
	"trustedhands/internal/models"
	"trustedhands/internal/repositories/memory"
	"trustedhands/internal/services"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/ml"
	"trustedhands/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:      &config.AppConfig{Name: "TrustedHands", Version: "test"},
		Security: &config.SecurityConfig{JWTSecret: "routes-secret", CORSAllowedOrigins: []string{"*"}},
		Escrow:   &config.EscrowConfig{AdminUPIID: "escrow@upi", Currency: "INR", MaxEvidenceItems: 10},
	}
	log := logger.NewDiscard()

	users := memory.NewUserRepository()
	bookings := memory.NewBookingRepository()
	tickets := memory.NewSupportTicketRepository()
	notifier := services.NewNotificationService(memory.NewNotificationRepository(), users, nil, services.NotificationChannels{}, log)
	t.Cleanup(notifier.Wait)

	classifier := ml.NewKeywordClassifier()
	ledger := services.NewPaymentLedger(memory.NewPaymentRepository(), bookings, memory.NewAuditLogRepository(), memory.NewPaymentSettingsRepository(), notifier, cfg.Escrow, log)
	coordinator := services.NewEscrowCoordinator(ledger, tickets, bookings, users, classifier, ml.NewHeuristicReviewer(), notifier, cfg.Escrow, log)
	support := services.NewSupportService(tickets, memory.NewTicketMessageRepository(), users, coordinator, classifier, nil, notifier, cfg.Escrow, log)

	evidence, err := storage.NewLocalStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	router := NewRouter(cfg, log, &Handlers{
		Payment: handlers.NewPaymentHandler(ledger),
		Support: handlers.NewSupportHandler(support, coordinator, evidence, cfg.Escrow, log),
	}, checks)
	return router, cfg
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, map[string]HealthCheck{
		"mongodb": func() error { return nil },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mongodb":"ok"`)

	router, _ = newTestRouter(t, map[string]HealthCheck{
		"redis": func() error { return errors.New("connection refused") },
	})

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouteGuards(t *testing.T) {
	router, cfg := newTestRouter(t, nil)

	token := func(role models.UserRole) string {
		signed, err := middleware.GenerateToken(cfg.Security.JWTSecret, primitive.NewObjectID(), role, time.Hour)
		require.NoError(t, err)
		return "Bearer " + signed
	}
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		method string
		path   string
		auth   string
		status int
	}{
		{http.MethodGet, "/api/v1/payments/mine", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/payments/mine", token(models.UserRoleCustomer), http.StatusOK},
		{http.MethodGet, "/api/v1/payments/" + id, token(models.UserRoleCustomer), http.StatusNotFound},
		{http.MethodGet, "/api/v1/payments/" + id + "/history", token(models.UserRoleCustomer), http.StatusForbidden},
		{http.MethodGet, "/api/v1/payments/" + id + "/history", token(models.UserRoleAdmin), http.StatusNotFound},
		{http.MethodGet, "/api/v1/payments/settings/current", token(models.UserRoleCustomer), http.StatusOK},
		{http.MethodPut, "/api/v1/payments/settings/update", token(models.UserRoleCustomer), http.StatusForbidden},
		{http.MethodGet, "/api/v1/support/tickets/mine", token(models.UserRoleTasker), http.StatusOK},
		{http.MethodGet, "/api/v1/support/tickets/" + id + "/messages", token(models.UserRoleCustomer), http.StatusNotFound},
		{http.MethodGet, "/api/v1/admin/support/statistics", token(models.UserRoleTasker), http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/support/statistics", token(models.UserRoleAdmin), http.StatusOK},
		{http.MethodGet, "/api/v1/admin/support/tickets", token(models.UserRoleSuperAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
