package handlers

import (
	"net/http"
	"strconv"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// PurchaseHandler holds the purchase service.
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(ps services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: ps}
}

// CreatePurchase handles POST /purchases.
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req services.SavePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	purchase, err := h.purchaseService.CreatePurchase(req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "purchase")
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

// GetPurchases handles GET /purchases with ?status=, ?page= and ?page_size=.
func (h *PurchaseHandler) GetPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	purchases, total, err := h.purchaseService.GetPurchases(c.Query("status"), page, pageSize)
	if err != nil {
		respondServiceError(c, err, "purchase")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"purchases": purchases,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetPurchaseByID handles GET /purchases/:id.
func (h *PurchaseHandler) GetPurchaseByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	purchase, err := h.purchaseService.GetPurchase(id)
	if err != nil {
		respondServiceError(c, err, "purchase")
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// UpdatePurchase handles PUT /purchases/:id.
func (h *PurchaseHandler) UpdatePurchase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SavePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	purchase, err := h.purchaseService.UpdatePurchase(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "purchase")
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// AddLot handles POST /purchases/:id/lots.
func (h *PurchaseHandler) AddLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.LotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	lot, err := h.purchaseService.AddLot(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "lot")
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// UpdateLot handles PUT /lots/:id.
func (h *PurchaseHandler) UpdateLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.LotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindJSONError(c, err)
		return
	}
	lot, err := h.purchaseService.UpdateLot(id, req, actorID(c))
	if err != nil {
		respondServiceError(c, err, "lot")
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GetAvailableLots handles GET /lots/available, the run form's lot picker.
func (h *PurchaseHandler) GetAvailableLots(c *gin.Context) {
	lots, err := h.purchaseService.GetAvailableLots()
	if err != nil {
		respondServiceError(c, err, "lot")
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GetInventory handles GET /inventory: on-hand lots with remaining weight.
func (h *PurchaseHandler) GetInventory(c *gin.Context) {
	lots, err := h.purchaseService.GetOnHandLots()
	if err != nil {
		respondServiceError(c, err, "lot")
		return
	}
	c.JSON(http.StatusOK, lots)
}
