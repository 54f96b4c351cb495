package validators

import (
	"trustedhands/internal/models"
)

type CreateTicketRequest struct {
	Category            string   `json:"category" validate:"required,ticket_category"`
	Subject             string   `json:"subject" validate:"required,max=200"`
	Description         string   `json:"description" validate:"required,max=5000"`
	BookingID           string   `json:"booking_id" validate:"omitempty,object_id"`
	PaymentID           string   `json:"payment_id" validate:"omitempty,object_id"`
	IsComplaint         bool     `json:"is_complaint"`
	ComplaintAgainstID  string   `json:"complaint_against_id" validate:"omitempty,object_id"`
	EvidenceURLs        []string `json:"evidence_urls" validate:"max=10,dive,url"`
	EvidenceDescription string   `json:"evidence_description" validate:"omitempty,max=1000"`
}

type CreateComplaintRequest struct {
	Category            string   `json:"category" validate:"required,complaint_category"`
	Subject             string   `json:"subject" validate:"required,max=200"`
	Description         string   `json:"description" validate:"required,max=5000"`
	BookingID           string   `json:"booking_id" validate:"required,object_id"`
	PaymentID           string   `json:"payment_id" validate:"omitempty,object_id"`
	ComplaintAgainstID  string   `json:"complaint_against_id" validate:"required,object_id"`
	EvidenceURLs        []string `json:"evidence_urls" validate:"max=10,dive,url"`
	EvidenceDescription string   `json:"evidence_description" validate:"omitempty,max=1000"`
}

type UpdateTicketRequest struct {
	Status            string `json:"status" validate:"omitempty,ticket_status"`
	Priority          string `json:"priority" validate:"omitempty,ticket_priority"`
	AssignedTo        string `json:"assigned_to" validate:"omitempty,object_id"`
	AssignedAgentName string `json:"assigned_agent_name" validate:"omitempty,max=100"`
	ResolutionNotes   string `json:"resolution_notes" validate:"omitempty,max=2000"`
}

type EscalateTicketRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RateTicketRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"omitempty,max=1000"`
}

type ResolveComplaintRequest struct {
	Result        string   `json:"review_result" validate:"required,resolution_result"`
	Notes         string   `json:"review_notes" validate:"required,max=2000"`
	RefundAmount  *float64 `json:"refund_amount" validate:"omitempty,gt=0"`
	PenaltyAmount *float64 `json:"penalty_amount" validate:"omitempty,gte=0"`
}

type AddTicketMessageRequest struct {
	Message     string   `json:"message" validate:"required,max=5000"`
	Attachments []string `json:"attachments" validate:"max=10,dive,url"`
}

func ValidateCreateTicket(req *CreateTicketRequest) ValidationErrors {
	req.Subject = SanitizeInput(req.Subject)
	req.Description = SanitizeInput(req.Description)
	errors := ValidateStruct(req)

	if req.IsComplaint || models.TicketCategory(req.Category).IsComplaint() {
		if req.ComplaintAgainstID == "" {
			errors = append(errors, ValidationError{
				Field:   "complaint_against_id",
				Message: "Complaints must name the party they are filed against",
			})
		}
		if req.BookingID == "" {
			errors = append(errors, ValidationError{
				Field:   "booking_id",
				Message: "Complaints must reference a booking",
			})
		}
	}

	return errors
}

func ValidateCreateComplaint(req *CreateComplaintRequest) ValidationErrors {
	req.Subject = SanitizeInput(req.Subject)
	req.Description = SanitizeInput(req.Description)
	return ValidateStruct(req)
}

func ValidateUpdateTicket(req *UpdateTicketRequest) ValidationErrors {
	req.ResolutionNotes = SanitizeInput(req.ResolutionNotes)
	return ValidateStruct(req)
}

func ValidateEscalateTicket(req *EscalateTicketRequest) ValidationErrors {
	req.Reason = SanitizeInput(req.Reason)
	return ValidateStruct(req)
}

func ValidateRateTicket(req *RateTicketRequest) ValidationErrors {
	req.Feedback = SanitizeInput(req.Feedback)
	return ValidateStruct(req)
}

func ValidateResolveComplaint(req *ResolveComplaintRequest) ValidationErrors {
	req.Notes = SanitizeInput(req.Notes)
	errors := ValidateStruct(req)

	if models.ResolutionResult(req.Result) == models.ResolutionRefundPartial && req.RefundAmount == nil {
		errors = append(errors, ValidationError{
			Field:   "refund_amount",
			Message: "Partial refunds need an amount",
		})
	}

	return errors
}

func ValidateAddTicketMessage(req *AddTicketMessageRequest) ValidationErrors {
	req.Message = SanitizeInput(req.Message)
	return ValidateStruct(req)
}
