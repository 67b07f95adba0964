package controllers

import (
	"strconv"

	"venuehub/middleware"
	"venuehub/models"
	"venuehub/services"
	"venuehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type NotificationController struct {
	notificationService *services.NotificationService
}

func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// SendNotification sends a push notification immediately
// @Summary Send notification
// @Description Send a push notification to the resolved audience right away
// @Tags Notifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.SendNotificationRequest true "Notification data"
// @Success 200 {object} models.APIResponse{data=models.SendNotificationResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /notifications/send [post]
func (nc *NotificationController) SendNotification(c *gin.Context) {
	userID, userEmail, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.SendNotificationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := nc.notificationService.SendNow(c.Request.Context(), userID, userEmail, &req)
	if err != nil {
		logrus.Errorf("Send notification failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification sent", result)
}

// ScheduleNotification queues a notification for later delivery
// @Summary Schedule notification
// @Description Queue a notification for delivery at a future time, optionally repeating
// @Tags Notifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.ScheduleNotificationRequest true "Schedule data"
// @Success 201 {object} models.APIResponse{data=models.Notification}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /notifications/schedule [post]
func (nc *NotificationController) ScheduleNotification(c *gin.Context) {
	userID, userEmail, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.ScheduleNotificationRequest
	if !bindJSON(c, &req) {
		return
	}

	notification, err := nc.notificationService.Schedule(c.Request.Context(), userID, userEmail, &req)
	if err != nil {
		logrus.Errorf("Schedule notification failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Notification scheduled", notification)
}

// GetNotifications lists notifications
// @Summary List notifications
// @Description Get notifications, newest first
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} models.APIResponse{data=[]models.Notification}
// @Router /notifications [get]
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	page, pageSize := parsePagination(c)

	notifications, total, err := nc.notificationService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		logrus.Errorf("List notifications failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to list notifications")
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, utils.CreatePaginationMeta(page, pageSize, total))
}

// GetNotification gets one notification by id
// @Summary Get notification
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} models.APIResponse{data=models.Notification}
// @Failure 404 {object} models.APIResponse
// @Router /notifications/{id} [get]
func (nc *NotificationController) GetNotification(c *gin.Context) {
	notification, err := nc.notificationService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Notification")
			return
		}
		logrus.Errorf("Get notification failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification retrieved", notification)
}

// GetDeliveries lists per-recipient delivery results of a notification
// @Summary Get notification deliveries
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} models.APIResponse{data=[]models.Delivery}
// @Failure 404 {object} models.APIResponse
// @Router /notifications/{id}/deliveries [get]
func (nc *NotificationController) GetDeliveries(c *gin.Context) {
	page, pageSize := parsePagination(c)

	deliveries, total, err := nc.notificationService.GetDeliveries(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Notification")
			return
		}
		logrus.Errorf("Get deliveries failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Deliveries retrieved", deliveries, utils.CreatePaginationMeta(page, pageSize, total))
}

// bindJSON binds the request body and answers the request itself on failure,
// with per-field messages when the error came from validation tags.
func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		if verrs := utils.DescribeValidationErrors(err); len(verrs) > 0 {
			utils.ValidationErrorResponse(c, verrs)
		} else {
			utils.BadRequestResponse(c, "Invalid request body")
		}
		return false
	}
	return true
}

func requireActor(c *gin.Context) (userID, userEmail string, ok bool) {
	userID, hasID := middleware.GetCurrentUserID(c)
	userEmail, hasEmail := middleware.GetCurrentUserEmail(c)
	if !hasID || !hasEmail {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return "", "", false
	}
	return userID, userEmail, true
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page = 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	pageSize = 20
	if sizeStr := c.Query("pageSize"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			pageSize = s
		}
	}
	return page, pageSize
}
