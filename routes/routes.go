package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ups-shipping-service/controllers"
)

// RegisterShippingRoutes sets up the shipment pages.
func RegisterShippingRoutes(r *gin.Engine, sc *controllers.ShippingController) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/shipment/form")
	})

	shipment := r.Group("/shipment")
	shipment.GET("/form", sc.ShowForm)
	shipment.POST("/rate", sc.GetRates)
	shipment.POST("/create", sc.CreateShipment)

	// Diagnostic: confirms the UPS credentials without quoting anything.
	shipment.GET("/test-auth", sc.TestAuth)
}

// RegisterStorageRoutes serves locally stored labels under /storage.
func RegisterStorageRoutes(r *gin.Engine, root string) {
	r.Static("/storage", root)
}
