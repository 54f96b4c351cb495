package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"trustedhands/internal/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("payment_method", validatePaymentMethod)
	validate.RegisterValidation("ticket_category", validateTicketCategory)
	validate.RegisterValidation("complaint_category", validateComplaintCategory)
	validate.RegisterValidation("ticket_status", validateTicketStatus)
	validate.RegisterValidation("ticket_priority", validateTicketPriority)
	validate.RegisterValidation("resolution_result", validateResolutionResult)
}

var ErrInvalidObjectID = errors.New("invalid object ID format")

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// ToMap flattens the errors into the details map of an API error.
func (v ValidationErrors) ToMap() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "request", Message: err.Error()}}
		}
		for _, fieldErr := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldErr.Field(),
				Tag:     fieldErr.Tag(),
				Value:   fmt.Sprintf("%v", fieldErr.Value()),
				Message: getErrorMessage(fieldErr),
			})
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "payment_method":
		return "Payment method must be upi_qr or upi_id"
	case "ticket_category":
		return "Unknown ticket category"
	case "complaint_category":
		return "Category must be one of the complaint categories"
	case "ticket_status":
		return "Unknown ticket status"
	case "ticket_priority":
		return "Priority must be low, medium, high or critical"
	case "resolution_result":
		return "Result must be refund_full, refund_partial, penalty_provider or no_action"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	_, err := primitive.ObjectIDFromHex(value)
	return err == nil
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.PaymentMethod(value).IsValid()
}

func validateTicketCategory(fl validator.FieldLevel) bool {
	return models.TicketCategory(fl.Field().String()).IsValid()
}

func validateComplaintCategory(fl validator.FieldLevel) bool {
	return models.TicketCategory(fl.Field().String()).IsComplaint()
}

func validateTicketStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.TicketStatus(value).IsValid()
}

func validateTicketPriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.TicketPriority(value).IsValid()
}

func validateResolutionResult(fl validator.FieldLevel) bool {
	return models.ResolutionResult(fl.Field().String()).IsValid()
}

// ParseObjectID converts a validated hex id, returning nil for an empty string.
func ParseObjectID(id string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidObjectID
	}
	return &oid, nil
}

func SanitizeInput(input string) string {
	// Remove HTML tags and trim whitespace
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
