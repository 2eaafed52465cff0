package handlers

import (
	"net/http"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// SupplierHandler holds the supplier service.
type SupplierHandler struct {
	supplierService services.SupplierService
}

// NewSupplierHandler creates a new SupplierHandler.
func NewSupplierHandler(ss services.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: ss}
}

// CreateSupplier handles POST /suppliers.
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req services.SaveSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	supplier, err := h.supplierService.CreateSupplier(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "supplier")
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

// GetSuppliers handles GET /suppliers. ?active=true restricts to active ones.
func (h *SupplierHandler) GetSuppliers(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	suppliers, err := h.supplierService.GetSuppliers(activeOnly)
	if err != nil {
		respondServiceError(c, err, "supplier")
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// GetSupplierByID handles GET /suppliers/:id.
func (h *SupplierHandler) GetSupplierByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	supplier, err := h.supplierService.GetSupplier(id)
	if err != nil {
		respondServiceError(c, err, "supplier")
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// UpdateSupplier handles PUT /suppliers/:id.
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SaveSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	supplier, err := h.supplierService.UpdateSupplier(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "supplier")
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// DeactivateSupplier handles DELETE /suppliers/:id. Suppliers are never
// removed; historical purchases keep pointing at them.
func (h *SupplierHandler) DeactivateSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.supplierService.DeactivateSupplier(id, actorID(c)); err != nil {
		respondServiceError(c, err, "supplier")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deactivated."})
}
