package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/points"
	log "github.com/sirupsen/logrus"
)

// ProductHandler serves the catalog and product exchange.
type ProductHandler struct {
	svc *points.Service
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(svc *points.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// productListQuery defines query parameters for the catalog.
type productListQuery struct {
	All bool `form:"all"`
}

// List returns the catalog. Sold-out items are hidden unless all=true.
func (h *ProductHandler) List(c *gin.Context) {
	var q productListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	products, errList := h.svc.ListProducts(c.Request.Context(), !q.All)
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

// Exchange spends the student's points on one unit of the product.
func (h *ProductHandler) Exchange(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	record, errExchange := h.svc.ExchangeProduct(c.Request.Context(), studentID, productID)
	if errExchange != nil {
		respond.PointsError(c, "exchange", errExchange)
		return
	}
	log.WithFields(log.Fields{
		"student_id":  studentID,
		"product_id":  productID,
		"exchange_id": record.ID,
	}).Info("product exchanged")
	c.JSON(http.StatusCreated, gin.H{"exchange": serializeExchange(record, record.ExchangeDate)})
}
