package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yashrajoria/ups-shipping-service/models"
	"github.com/yashrajoria/ups-shipping-service/services"
	"go.uber.org/zap"
)

// ShippingController serves the shipment pages. Every page handler also
// answers JSON when the client asks for it.
type ShippingController struct {
	shippingService services.ShippingService
	logger          *zap.Logger
}

// NewShippingController creates a new ShippingController.
func NewShippingController(svc services.ShippingService, logger *zap.Logger) *ShippingController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingController{shippingService: svc, logger: logger}
}

// DefaultShipment pre-fills the form.
func DefaultShipment() *models.ShipmentRequest {
	return &models.ShipmentRequest{
		ShipperName:      "Karl Englund",
		ShipperPhone:     "555-123-4567",
		ShipperAddress:   "939 Palm Ave",
		ShipperCity:      "West Hollywood",
		ShipperState:     "CA",
		ShipperPostal:    "90069",
		ShipperCountry:   "US",
		RecipientName:    "Dawn Englund",
		RecipientPhone:   "555-987-6543",
		RecipientAddress: "426 Dulton Dr",
		RecipientCity:    "Toledo",
		RecipientState:   "OH",
		RecipientPostal:  "43615",
		RecipientCountry: "US",
		Weight:           models.DefaultWeightLbs,
		Length:           models.DefaultDimension,
		Width:            models.DefaultDimension,
		Height:           models.DefaultDimension,
	}
}

// ShowForm handles GET /shipment/form
func (sc *ShippingController) ShowForm(ctx *gin.Context) {
	sc.renderForm(ctx, http.StatusOK, DefaultShipment(), "")
}

// GetRates handles POST /shipment/rate
func (sc *ShippingController) GetRates(ctx *gin.Context) {
	var req models.ShipmentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		sc.badRequest(ctx, &req, err)
		return
	}

	rates, svcErr := sc.shippingService.GetRates(ctx.Request.Context(), &req)
	if svcErr != nil {
		if wantsJSON(ctx) {
			ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}
		sc.renderForm(ctx, svcErr.StatusCode, &req, svcErr.Message)
		return
	}

	if wantsJSON(ctx) {
		ctx.JSON(http.StatusOK, gin.H{"rates": rates})
		return
	}
	ctx.HTML(http.StatusOK, "rates.tmpl", gin.H{
		"Title":   "Shipping Rates",
		"Rates":   rates,
		"Request": &req,
		"Fields":  req.Fields(),
	})
}

// CreateShipment handles POST /shipment/create
func (sc *ShippingController) CreateShipment(ctx *gin.Context) {
	var req models.ShipmentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		sc.badRequest(ctx, &req, err)
		return
	}

	result, svcErr := sc.shippingService.CreateShipment(ctx.Request.Context(), &req)
	if svcErr != nil {
		if wantsJSON(ctx) {
			ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "details": svcErr.Chain()})
			return
		}
		ctx.HTML(svcErr.StatusCode, "error.tmpl", gin.H{
			"Title": "Shipment Failed",
			"Error": svcErr.Message,
			"Chain": svcErr.Chain(),
		})
		return
	}

	if wantsJSON(ctx) {
		ctx.JSON(http.StatusCreated, gin.H{"shipment": result})
		return
	}
	ctx.HTML(http.StatusOK, "label.tmpl", gin.H{
		"Title":  "Shipment Created",
		"Result": result,
	})
}

// TestAuth handles GET /shipment/test-auth
func (sc *ShippingController) TestAuth(ctx *gin.Context) {
	token, svcErr := sc.shippingService.TestAuth(ctx.Request.Context())
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (sc *ShippingController) badRequest(ctx *gin.Context, req *models.ShipmentRequest, err error) {
	msg := bindErrorMessage(err)
	sc.logger.Debug("Rejected shipment request", zap.String("path", ctx.FullPath()), zap.Error(err))
	if wantsJSON(ctx) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": msg})
		return
	}
	sc.renderForm(ctx, http.StatusBadRequest, req, msg)
}

func (sc *ShippingController) renderForm(ctx *gin.Context, status int, req *models.ShipmentRequest, errMsg string) {
	ctx.HTML(status, "form.tmpl", gin.H{
		"Title":   "Shipment Form",
		"Request": req,
		"Error":   errMsg,
	})
}

// wantsJSON reports whether the client prefers JSON over the HTML pages.
func wantsJSON(ctx *gin.Context) bool {
	return ctx.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// bindErrorMessage turns validator output into something a form user can act on.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid shipment details: " + err.Error()
	}
	msg := "Please correct the following fields:"
	for i, fe := range verrs {
		if i > 0 {
			msg += ","
		}
		switch fe.Tag() {
		case "required":
			msg += " " + fe.Field() + " is required"
		case "numeric":
			msg += " " + fe.Field() + " must be a number"
		default:
			msg += " " + fe.Field() + " is invalid"
		}
	}
	return msg
}
