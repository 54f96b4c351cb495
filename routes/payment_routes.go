package routes

import (
	handlers "trustedhands/internal/handlers/shared"
	"trustedhands/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes sets up escrow payment routes
func SetupPaymentRoutes(r *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, auth gin.HandlerFunc) {
	payments := r.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("/initiate", paymentHandler.InitiatePayment)
		payments.POST("/release", paymentHandler.ReleasePayment)

		payments.GET("/mine", paymentHandler.ListMyPayments)
		payments.GET("/settings/current", paymentHandler.GetPaymentSettings)
		payments.GET("/booking/:booking_id", paymentHandler.GetPaymentByBooking)
		payments.GET("/:id", paymentHandler.GetPayment)
		payments.GET("/:id/status", paymentHandler.GetPaymentStatus)
	}

	// Operator attested transitions
	admin := r.Group("/payments")
	admin.Use(auth, middleware.AdminRequired())
	{
		admin.POST("/verify", paymentHandler.VerifyPayment)
		admin.POST("/refund", paymentHandler.RefundPayment)
		admin.PUT("/settings/update", paymentHandler.UpdatePaymentSettings)
		admin.POST("/:id/fail", paymentHandler.FailPayment)
		admin.GET("/:id/history", paymentHandler.GetPaymentHistory)
	}
}
