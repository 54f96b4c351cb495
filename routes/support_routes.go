package routes

import (
	handlers "trustedhands/internal/handlers/shared"
	"trustedhands/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSupportRoutes sets up ticket, complaint and dispute resolution routes
func SetupSupportRoutes(r *gin.RouterGroup, supportHandler *handlers.SupportHandler, auth gin.HandlerFunc) {
	support := r.Group("/support")
	support.Use(auth)
	{
		support.POST("/tickets", supportHandler.CreateTicket)
		support.GET("/tickets/mine", supportHandler.ListMyTickets)
		support.GET("/tickets/:id", supportHandler.GetTicket)
		support.POST("/tickets/:id/escalate", supportHandler.EscalateTicket)
		support.POST("/tickets/:id/rate", supportHandler.RateTicket)
		support.GET("/tickets/:id/messages", supportHandler.ListMessages)
		support.POST("/tickets/:id/messages", supportHandler.AddMessage)

		support.POST("/complaints", supportHandler.FileComplaint)
		support.POST("/complaints/evidence", supportHandler.UploadEvidence)
	}

	admin := r.Group("/admin/support")
	admin.Use(auth, middleware.AdminRequired())
	{
		admin.GET("/tickets", supportHandler.ListTickets)
		admin.PUT("/tickets/:id", supportHandler.UpdateTicket)
		admin.GET("/statistics", supportHandler.GetStatistics)

		admin.POST("/complaints/:id/ai-review", supportHandler.AIReview)
		admin.POST("/complaints/:id/resolve", supportHandler.ResolveComplaint)
	}
}
