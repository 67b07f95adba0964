package controllers

import (
	"venuehub/middleware"
	"venuehub/models"
	"venuehub/repositories"
	"venuehub/services"
	"venuehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type SubscriptionController struct {
	subscriptionRepo *repositories.SubscriptionRepository
}

func NewSubscriptionController(subscriptionRepo *repositories.SubscriptionRepository) *SubscriptionController {
	return &SubscriptionController{
		subscriptionRepo: subscriptionRepo,
	}
}

// RegisterSubscription registers a device for push notifications
// @Summary Register push subscription
// @Description Register the caller's device address for push delivery
// @Tags Subscriptions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.RegisterSubscriptionRequest true "Device address"
// @Success 201 {object} models.APIResponse{data=models.PushSubscription}
// @Failure 400 {object} models.APIResponse
// @Router /push/subscriptions [post]
func (sc *SubscriptionController) RegisterSubscription(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.RegisterSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	// The platform tag is parsed exactly once, here. Everything downstream
	// trusts the stored discriminator.
	platform, token, err := services.ParseDeviceAddress(req.Address)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	sub := &models.PushSubscription{
		UserID:   userID,
		Platform: platform,
		Token:    token,
		Address:  req.Address,
	}
	if err := sc.subscriptionRepo.Upsert(c.Request.Context(), sub); err != nil {
		logrus.Errorf("Register subscription failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to register subscription")
		return
	}

	utils.CreatedResponse(c, "Subscription registered", sub)
}

// UnregisterSubscription deactivates one of the caller's subscriptions
// @Summary Unregister push subscription
// @Tags Subscriptions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /push/subscriptions/{id} [delete]
func (sc *SubscriptionController) UnregisterSubscription(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	err := sc.subscriptionRepo.DeactivateOwned(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Subscription")
			return
		}
		logrus.Errorf("Unregister subscription failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Subscription removed", nil)
}
