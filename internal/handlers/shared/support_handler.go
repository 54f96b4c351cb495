package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"trustedhands/internal/config"
	"trustedhands/internal/models"
	"trustedhands/internal/services"
	"trustedhands/internal/utils"
	"trustedhands/internal/validators"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SupportHandler struct {
	supportService *services.SupportService
	coordinator    *services.EscrowCoordinator
	storage        storage.StorageProvider
	config         *config.EscrowConfig
	logger         *logger.Logger
}

func NewSupportHandler(
	supportService *services.SupportService,
	coordinator *services.EscrowCoordinator,
	storageProvider storage.StorageProvider,
	cfg *config.EscrowConfig,
	log *logger.Logger,
) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
		coordinator:    coordinator,
		storage:        storageProvider,
		config:         cfg,
		logger:         log,
	}
}

// CreateTicket opens a support ticket; complaint categories freeze the booking's payment
func (h *SupportHandler) CreateTicket(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.CreateTicketRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateCreateTicket(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	bookingID, _ := validators.ParseObjectID(request.BookingID)
	paymentID, _ := validators.ParseObjectID(request.PaymentID)
	againstID, _ := validators.ParseObjectID(request.ComplaintAgainstID)

	outcome, err := h.supportService.CreateTicket(c.Request.Context(), &services.CreateTicketInput{
		UserID:              caller.ID,
		UserRole:            caller.Role,
		Category:            models.TicketCategory(request.Category),
		Subject:             request.Subject,
		Description:         request.Description,
		BookingID:           bookingID,
		PaymentID:           paymentID,
		IsComplaint:         request.IsComplaint,
		ComplaintAgainstID:  againstID,
		EvidenceURLs:        request.EvidenceURLs,
		EvidenceDescription: request.EvidenceDescription,
	})
	if err != nil {
		respondError(c, err, "Failed to create ticket")
		return
	}

	utils.CreatedResponse(c, outcome.Message, outcome)
}

// FileComplaint files a complaint against the other party of a booking
func (h *SupportHandler) FileComplaint(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var request validators.CreateComplaintRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateCreateComplaint(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	bookingID, _ := primitive.ObjectIDFromHex(request.BookingID)
	againstID, _ := primitive.ObjectIDFromHex(request.ComplaintAgainstID)
	paymentID, _ := validators.ParseObjectID(request.PaymentID)

	outcome, err := h.supportService.FileComplaint(c.Request.Context(), &services.FileComplaintInput{
		UserID:              caller.ID,
		UserRole:            caller.Role,
		Category:            models.TicketCategory(request.Category),
		Subject:             request.Subject,
		Description:         request.Description,
		BookingID:           bookingID,
		PaymentID:           paymentID,
		ComplaintAgainstID:  againstID,
		EvidenceURLs:        request.EvidenceURLs,
		EvidenceDescription: request.EvidenceDescription,
	})
	if err != nil {
		respondError(c, err, "Failed to file complaint")
		return
	}

	utils.CreatedResponse(c, outcome.Message, outcome)
}

// UploadEvidence stores one evidence file and returns its URL for a later complaint
func (h *SupportHandler) UploadEvidence(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Evidence file is required")
		return
	}
	if h.config.MaxEvidenceSize > 0 && file.Size > h.config.MaxEvidenceSize {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Evidence file is too large")
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if !allowedEvidenceType(ext) {
		utils.BadRequestResponse(c, "Unsupported evidence file type")
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read evidence file")
		return
	}
	defer src.Close()

	uploaded, err := h.storage.Upload(c.Request.Context(), &storage.UploadRequest{
		Key:         storage.EvidenceKey(caller.ID.Hex(), file.Filename),
		Reader:      src,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Metadata:    map[string]string{"uploaded_by": caller.ID.Hex()},
	})
	if err != nil {
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Failed to store evidence")
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.CreatedResponse(c, "Evidence uploaded", uploaded)
}

func allowedEvidenceType(ext string) bool {
	for _, allowed := range utils.AllowedEvidenceTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (h *SupportHandler) GetTicket(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	ticket, err := h.supportService.GetTicket(c.Request.Context(), ticketID, caller)
	if err != nil {
		respondError(c, err, "Failed to get ticket")
		return
	}

	utils.SuccessResponse(c, "Ticket retrieved successfully", ticket)
}

func (h *SupportHandler) ListMyTickets(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	tickets, total, err := h.supportService.ListUserTickets(c.Request.Context(), caller.ID, params)
	if err != nil {
		respondError(c, err, "Failed to list tickets")
		return
	}

	utils.SuccessResponseWithMeta(c, "Tickets retrieved successfully", tickets, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *SupportHandler) EscalateTicket(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	var request validators.EscalateTicketRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateEscalateTicket(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	ticket, err := h.supportService.EscalateTicket(c.Request.Context(), ticketID, request.Reason, caller)
	if err != nil {
		respondError(c, err, "Failed to escalate ticket")
		return
	}

	utils.SuccessResponse(c, "Ticket escalated to a support agent", ticket)
}

// ListMessages returns the ticket's conversation, oldest first
func (h *SupportHandler) ListMessages(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	messages, err := h.supportService.ListMessages(c.Request.Context(), ticketID, caller)
	if err != nil {
		respondError(c, err, "Failed to get ticket messages")
		return
	}

	utils.SuccessResponse(c, "Ticket messages retrieved", messages)
}

func (h *SupportHandler) AddMessage(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	var request validators.AddTicketMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateAddTicketMessage(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	message, err := h.supportService.AddMessage(c.Request.Context(), &services.AddMessageInput{
		TicketID:    ticketID,
		Message:     request.Message,
		Attachments: request.Attachments,
		Actor:       caller,
	})
	if err != nil {
		respondError(c, err, "Failed to add message")
		return
	}

	utils.CreatedResponse(c, "Message added", message)
}

func (h *SupportHandler) RateTicket(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	var request validators.RateTicketRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateRateTicket(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	ticket, err := h.supportService.RateTicket(c.Request.Context(), ticketID, request.Rating, request.Feedback, caller)
	if err != nil {
		respondError(c, err, "Failed to rate ticket")
		return
	}

	utils.SuccessResponse(c, "Thanks for your feedback", ticket)
}

// AIReview runs the advisory reviewer on a complaint
func (h *SupportHandler) AIReview(c *gin.Context) {
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	ticket, err := h.coordinator.AIReview(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err, "Failed to review complaint")
		return
	}

	utils.SuccessResponse(c, "Complaint reviewed", ticket)
}

// ResolveComplaint applies the operator's decision and releases the escrow hold
func (h *SupportHandler) ResolveComplaint(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	var request validators.ResolveComplaintRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateResolveComplaint(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	outcome, err := h.supportService.ResolveComplaint(c.Request.Context(), &services.ResolveInput{
		TicketID:      ticketID,
		Result:        models.ResolutionResult(request.Result),
		Notes:         request.Notes,
		RefundAmount:  request.RefundAmount,
		PenaltyAmount: request.PenaltyAmount,
		OperatorID:    caller.ID,
	})
	if err != nil {
		respondError(c, err, "Failed to resolve complaint")
		return
	}

	utils.SuccessResponse(c, "Complaint resolved", outcome)
}

func (h *SupportHandler) ListTickets(c *gin.Context) {
	filter := &models.TicketFilter{
		Tier:   models.TicketTier(c.Query("tier")),
		Status: models.TicketStatus(c.Query("status")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		utils.BadRequestResponse(c, "Invalid status filter")
		return
	}

	params := utils.GetPaginationParams(c)
	tickets, total, err := h.supportService.ListTickets(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err, "Failed to list tickets")
		return
	}

	utils.SuccessResponseWithMeta(c, "Tickets retrieved successfully", tickets, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *SupportHandler) UpdateTicket(c *gin.Context) {
	ticketID, ok := paramID(c, "id", "ticket")
	if !ok {
		return
	}

	var request validators.UpdateTicketRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateUpdateTicket(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.ToMap())
		return
	}

	assignedTo, _ := validators.ParseObjectID(request.AssignedTo)
	ticket, err := h.supportService.UpdateTicket(c.Request.Context(), ticketID, &services.UpdateTicketInput{
		Status:            models.TicketStatus(request.Status),
		Priority:          models.TicketPriority(request.Priority),
		AssignedTo:        assignedTo,
		AssignedAgentName: request.AssignedAgentName,
		ResolutionNotes:   request.ResolutionNotes,
	})
	if err != nil {
		respondError(c, err, "Failed to update ticket")
		return
	}

	utils.SuccessResponse(c, "Ticket updated successfully", ticket)
}

func (h *SupportHandler) GetStatistics(c *gin.Context) {
	stats, err := h.supportService.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get statistics")
		return
	}

	utils.SuccessResponse(c, "Statistics retrieved successfully", stats)
}
