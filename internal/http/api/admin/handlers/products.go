package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/points"
	log "github.com/sirupsen/logrus"
)

// ProductHandler manages the exchange catalog.
type ProductHandler struct {
	svc *points.Service // Points service that owns catalog writes.
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(svc *points.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// productRequest captures the editable product fields.
type productRequest struct {
	Name           string     `json:"name"`            // Display name.
	Description    string     `json:"description"`     // Optional description.
	ImageURL       string     `json:"image_url"`       // Optional image location.
	PointsCost     int64      `json:"points_cost"`     // Price in points.
	Stock          int64      `json:"stock"`           // Units available now.
	TotalQuantity  int64      `json:"total_quantity"`  // Units ever stocked; defaults to stock on create.
	ExpirationDate *time.Time `json:"expiration_date"` // Optional catalog expiry.
}

func (r productRequest) input() points.ProductInput {
	return points.ProductInput{
		Name:           strings.TrimSpace(r.Name),
		Description:    strings.TrimSpace(r.Description),
		ImageURL:       strings.TrimSpace(r.ImageURL),
		PointsCost:     r.PointsCost,
		Stock:          r.Stock,
		TotalQuantity:  r.TotalQuantity,
		ExpirationDate: r.ExpirationDate,
	}
}

// List returns every product, including sold-out ones.
func (h *ProductHandler) List(c *gin.Context) {
	products, errList := h.svc.ListProducts(c.Request.Context(), false)
	if errList != nil {
		respond.PointsError(c, "list products", errList)
		return
	}
	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, serializeProduct(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

// Create adds a product to the catalog.
func (h *ProductHandler) Create(c *gin.Context) {
	var body productRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	product, errCreate := h.svc.CreateProduct(c.Request.Context(), body.input())
	if errCreate != nil {
		respond.PointsError(c, "create product", errCreate)
		return
	}
	log.WithFields(log.Fields{
		"admin_id":   getAdminID(c),
		"product_id": product.ID,
	}).Info("product created")
	c.JSON(http.StatusCreated, gin.H{"product": serializeProduct(product)})
}

// Update replaces the editable fields of a product.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var body productRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	product, errUpdate := h.svc.UpdateProduct(c.Request.Context(), productID, body.input())
	if errUpdate != nil {
		respond.PointsError(c, "update product", errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": serializeProduct(product)})
}

// restockRequest adds units to stock and total quantity.
type restockRequest struct {
	Quantity int64 `json:"quantity"` // Units to add; must be positive.
}

// Restock adds units to a product.
func (h *ProductHandler) Restock(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	var body restockRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	product, errRestock := h.svc.Restock(c.Request.Context(), productID, body.Quantity)
	if errRestock != nil {
		respond.PointsError(c, "restock product", errRestock)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": serializeProduct(product)})
}

// Delete removes a product that has never been exchanged.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	if errDelete := h.svc.DeleteProduct(c.Request.Context(), productID); errDelete != nil {
		respond.PointsError(c, "delete product", errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}
