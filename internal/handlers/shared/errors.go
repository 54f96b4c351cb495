package handlers

import (
	"errors"
	"net/http"

	"trustedhands/internal/middleware"
	"trustedhands/internal/services"
	"trustedhands/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError maps a service error kind onto an HTTP status. Anything
// outside the taxonomy is reported as a 500 with the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	message := services.ErrorMessage(err, fallback)

	switch {
	case errors.Is(err, services.ErrEscrowFrozen):
		utils.EscrowFrozenResponse(c, message)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, message)
	case errors.Is(err, services.ErrForbidden):
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message)
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, message)
	case errors.Is(err, services.ErrInvalidState):
		utils.ConflictResponse(c, message)
	case errors.Is(err, services.ErrNotAComplaint):
		utils.BadRequestResponse(c, message)
	case errors.Is(err, services.ErrValidation):
		utils.UnprocessableResponse(c, "VALIDATION_ERROR", message)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

func actor(c *gin.Context) (services.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return services.Actor{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return services.Actor{ID: userID, Role: role}, true
}

func paramID(c *gin.Context, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+what+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
