package handlers

import (
	"trustedhands/internal/models"
	"trustedhands/internal/services"
	"trustedhands/internal/utils"
	"trustedhands/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// InitiatePayment creates the pending escrow payment for a booking
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateInitiatePayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	bookingID, _ := primitive.ObjectIDFromHex(request.BookingID)
	payment, err := h.paymentService.InitiatePayment(c.Request.Context(), bookingID, models.PaymentMethod(request.PaymentMethod), caller)
	if err != nil {
		respondError(c, err, "Failed to initiate payment")
		return
	}

	utils.CreatedResponse(c, "Payment initiated. Complete the UPI transfer to lock it in escrow.", payment)
}

// VerifyPayment records the operator's attestation that funds arrived
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateVerifyPayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	paymentID, _ := primitive.ObjectIDFromHex(request.PaymentID)
	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), &services.VerifyPaymentInput{
		PaymentID:          paymentID,
		UPITransactionID:   request.UPITransactionID,
		UPIReferenceNumber: request.UPIReferenceNumber,
		VerifiedBy:         caller.ID,
	})
	if err != nil {
		respondError(c, err, "Failed to verify payment")
		return
	}

	utils.SuccessResponse(c, "Payment verified and locked in escrow", payment)
}

func (h *PaymentHandler) FailPayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id", "payment")
	if !ok {
		return
	}

	var request validators.FailPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateFailPayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	payment, err := h.paymentService.FailPayment(c.Request.Context(), paymentID, request.Reason)
	if err != nil {
		respondError(c, err, "Failed to mark payment as failed")
		return
	}

	utils.SuccessResponse(c, "Payment marked as failed", payment)
}

// ReleasePayment pays the provider out of escrow
func (h *PaymentHandler) ReleasePayment(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.ReleasePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateReleasePayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	paymentID, _ := primitive.ObjectIDFromHex(request.PaymentID)
	payment, err := h.paymentService.ReleasePayment(c.Request.Context(), paymentID, request.ReleaseNotes, caller)
	if err != nil {
		respondError(c, err, "Failed to release payment")
		return
	}

	utils.SuccessResponse(c, "Payment released to provider", payment)
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var request validators.RefundPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateRefundPayment(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	paymentID, _ := primitive.ObjectIDFromHex(request.PaymentID)
	payment, err := h.paymentService.RefundPayment(c.Request.Context(), paymentID, request.RefundReason)
	if err != nil {
		respondError(c, err, "Failed to refund payment")
		return
	}

	utils.SuccessResponse(c, "Payment refunded", payment)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, ok := h.visiblePayment(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}

func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	payment, ok := h.visiblePayment(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Payment status retrieved successfully", payment.StatusView())
}

func (h *PaymentHandler) GetPaymentByBooking(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	bookingID, ok := paramID(c, "booking_id", "booking")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPaymentByBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err, "Failed to get payment")
		return
	}
	if !payment.IsParty(caller.ID) && !caller.Role.IsOperator() {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Payment retrieved successfully", payment)
}

// ListMyPayments lists payments the caller paid, or was paid, as a provider
func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), caller, params)
	if err != nil {
		respondError(c, err, "Failed to list payments")
		return
	}

	utils.SuccessResponseWithMeta(c, "Payments retrieved successfully", payments, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetPaymentHistory lists the custody audit trail of a payment
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	paymentID, ok := paramID(c, "id", "payment")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	entries, total, err := h.paymentService.PaymentHistory(c.Request.Context(), paymentID, params)
	if err != nil {
		respondError(c, err, "Failed to get payment history")
		return
	}

	utils.SuccessResponseWithMeta(c, "Payment history retrieved successfully", entries, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *PaymentHandler) visiblePayment(c *gin.Context) (*models.Payment, bool) {
	caller, ok := actor(c)
	if !ok {
		return nil, false
	}
	paymentID, ok := paramID(c, "id", "payment")
	if !ok {
		return nil, false
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, err, "Failed to get payment")
		return nil, false
	}
	if !payment.IsParty(caller.ID) && !caller.Role.IsOperator() {
		utils.ForbiddenResponse(c)
		return nil, false
	}
	return payment, true
}

// GetPaymentSettings shows the escrow account customers pay into
func (h *PaymentHandler) GetPaymentSettings(c *gin.Context) {
	settings, err := h.paymentService.GetPaymentSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get payment settings")
		return
	}

	utils.SuccessResponse(c, "Payment settings retrieved", settings)
}

func (h *PaymentHandler) UpdatePaymentSettings(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.UpdatePaymentSettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateUpdatePaymentSettings(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	escrowEnabled := true
	if request.EscrowEnabled != nil {
		escrowEnabled = *request.EscrowEnabled
	}

	settings, err := h.paymentService.UpdatePaymentSettings(c.Request.Context(), &services.UpdatePaymentSettingsInput{
		AdminUPIID:      request.AdminUPIID,
		AdminUPIName:    request.AdminUPIName,
		AdminQRCodeURL:  request.AdminQRCodeURL,
		EscrowEnabled:   escrowEnabled,
		AutoReleaseDays: request.AutoReleaseDays,
		UpdatedBy:       caller.ID,
	})
	if err != nil {
		respondError(c, err, "Failed to update payment settings")
		return
	}

	utils.SuccessResponse(c, "Payment settings updated successfully", settings)
}
