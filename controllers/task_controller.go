package controllers

import (
	"context"

	"venuehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type dispatchRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// TaskController exposes manual triggers for background work, mainly for
// operators and integration environments where waiting out a poll interval
// is a nuisance.
type TaskController struct {
	dispatcher dispatchRunner
}

func NewTaskController(dispatcher dispatchRunner) *TaskController {
	return &TaskController{
		dispatcher: dispatcher,
	}
}

// TriggerDispatch runs one scheduler pass immediately
// @Summary Trigger dispatch pass
// @Description Run one due-notification scheduler pass without waiting for the poll interval
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /tasks/dispatch [post]
func (tc *TaskController) TriggerDispatch(c *gin.Context) {
	dispatched, err := tc.dispatcher.RunOnce(c.Request.Context())
	if err != nil {
		logrus.Errorf("Manual dispatch failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Dispatch pass completed", gin.H{
		"dispatched": dispatched,
	})
}
