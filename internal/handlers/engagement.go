// internal/handlers/engagement.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type EngagementHandler struct {
	engagementService *services.EngagementService
}

func NewEngagementHandler(engagementService *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{
		engagementService: engagementService,
	}
}

// GET /wishlist
func (h *EngagementHandler) GetWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.engagementService.ListWishlist(c.Request.Context(), userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"items": items,
	})
}

// POST /wishlist
func (h *EngagementHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id" validate:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.engagementService.AddToWishlist(c.Request.Context(), userID, req.ProductID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyWishlistAdded),
	})
}

// DELETE /wishlist/:productId
func (h *EngagementHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "productId")
	if !ok {
		return
	}

	if err := h.engagementService.RemoveFromWishlist(c.Request.Context(), userID, productID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyWishlistRemoved),
	})
}

// POST /enquiries
//
// Guests may ask too; signed-in customers get the enquiry linked to them.
func (h *EngagementHandler) CreateEnquiry(c *gin.Context) {
	var req services.EnquiryRequest
	if !bindJSON(c, &req) {
		return
	}

	var userID *uuid.UUID
	if id, ok := utils.GetUserUUIDFromContext(c); ok {
		userID = &id
	}

	enquiry, err := h.engagementService.CreateEnquiry(c.Request.Context(), userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyEnquiryReceived),
		"enquiry": enquiry,
	})
}

// GET /enquiries
func (h *EngagementHandler) ListMyEnquiries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	enquiries, err := h.engagementService.ListEnquiries(c.Request.Context(), &userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"enquiries": enquiries,
	})
}

// POST /newsletter
func (h *EngagementHandler) Subscribe(c *gin.Context) {
	var req services.NewsletterRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.engagementService.Subscribe(c.Request.Context(), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	payload := gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyNewsletterSubscribed),
	}
	if created {
		utils.CreatedResponse(c, payload)
		return
	}
	utils.SuccessResponse(c, payload)
}

// GET /admin/enquiries
func (h *EngagementHandler) ListEnquiries(c *gin.Context) {
	enquiries, err := h.engagementService.ListEnquiries(c.Request.Context(), nil)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"enquiries": enquiries,
	})
}

// PUT /admin/enquiries/:id/resolve
func (h *EngagementHandler) ResolveEnquiry(c *gin.Context) {
	enquiryID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.engagementService.ResolveEnquiry(c.Request.Context(), enquiryID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyEnquiryResolved),
	})
}
