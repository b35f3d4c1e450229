package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloverkingdom/academy/internal/app/controllers"
)

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, admissionController *controllers.AdmissionController) {
	router.GET("/", admissionController.Welcome)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	// API version group
	v1 := router.Group("/api/v1")
	v1.GET("/", admissionController.Welcome)

	requests := v1.Group("/requests")
	{
		requests.POST("", admissionController.CreateRequest)
		requests.GET("", admissionController.ListRequests)
		requests.GET("/:id", admissionController.GetRequest)
		requests.PUT("/:id", admissionController.UpdateRequest)
		requests.PATCH("/:id/status", admissionController.UpdateStatus)
		requests.DELETE("/:id", admissionController.DeleteRequest)
	}

	v1.GET("/assignments", admissionController.AssignGrimoire)
}
