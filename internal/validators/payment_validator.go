package validators

type InitiatePaymentRequest struct {
	BookingID     string `json:"booking_id" validate:"required,object_id"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,payment_method"`
}

type VerifyPaymentRequest struct {
	PaymentID          string `json:"payment_id" validate:"required,object_id"`
	UPITransactionID   string `json:"upi_transaction_id" validate:"required,max=64"`
	UPIReferenceNumber string `json:"upi_reference_number" validate:"omitempty,max=64"`
}

type ReleasePaymentRequest struct {
	PaymentID    string `json:"payment_id" validate:"required,object_id"`
	ReleaseNotes string `json:"release_notes" validate:"omitempty,max=500"`
}

type RefundPaymentRequest struct {
	PaymentID    string `json:"payment_id" validate:"required,object_id"`
	RefundReason string `json:"refund_reason" validate:"required,max=500"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type UpdatePaymentSettingsRequest struct {
	AdminUPIID      string `json:"admin_upi_id" validate:"required,max=100"`
	AdminUPIName    string `json:"admin_upi_name" validate:"required,max=100"`
	AdminQRCodeURL  string `json:"admin_qr_code_url" validate:"omitempty,url"`
	EscrowEnabled   *bool  `json:"escrow_enabled"`
	AutoReleaseDays int    `json:"auto_release_days" validate:"gte=0,lte=30"`
}

func ValidateInitiatePayment(req *InitiatePaymentRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateVerifyPayment(req *VerifyPaymentRequest) ValidationErrors {
	req.UPITransactionID = SanitizeInput(req.UPITransactionID)
	req.UPIReferenceNumber = SanitizeInput(req.UPIReferenceNumber)
	return ValidateStruct(req)
}

func ValidateReleasePayment(req *ReleasePaymentRequest) ValidationErrors {
	req.ReleaseNotes = SanitizeInput(req.ReleaseNotes)
	return ValidateStruct(req)
}

func ValidateRefundPayment(req *RefundPaymentRequest) ValidationErrors {
	req.RefundReason = SanitizeInput(req.RefundReason)
	return ValidateStruct(req)
}

func ValidateFailPayment(req *FailPaymentRequest) ValidationErrors {
	req.Reason = SanitizeInput(req.Reason)
	return ValidateStruct(req)
}

func ValidateUpdatePaymentSettings(req *UpdatePaymentSettingsRequest) ValidationErrors {
	req.AdminUPIID = SanitizeInput(req.AdminUPIID)
	req.AdminUPIName = SanitizeInput(req.AdminUPIName)
	return ValidateStruct(req)
}
