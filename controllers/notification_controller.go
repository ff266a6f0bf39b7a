package controllers

import (
	"net/http"
	"time"

	"github.com/Ash-333/nepse-data/middleware"
	"github.com/Ash-333/nepse-data/services"
	"github.com/Ash-333/nepse-data/services/expo"
	"github.com/gin-gonic/gin"
)

// NotificationController manages push token registration and exposes a
// test broadcast.
type NotificationController struct {
	tokens   services.TokenStore
	notifier *services.NotificationService
}

// NewNotificationController creates the controller
func NewNotificationController(tokens services.TokenStore, notifier *services.NotificationService) *NotificationController {
	return &NotificationController{tokens: tokens, notifier: notifier}
}

type tokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// RegisterToken registers a device push token. Works with or without
// authentication; anonymous registrations are kept as legacy tokens.
func (nc *NotificationController) RegisterToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !expo.IsExpoPushToken(req.Token) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "not a valid Expo push token"})
		return
	}

	var userID *uint
	if id, ok := middleware.CurrentUserID(c); ok {
		userID = &id
	}

	if err := nc.tokens.SaveToken(c.Request.Context(), req.Token, userID, req.Platform); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to register token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnregisterToken removes a device push token
func (nc *NotificationController) UnregisterToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := nc.tokens.RemoveToken(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to unregister token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendTestNotification broadcasts a hello-world notification to every
// registered device.
func (nc *NotificationController) SendTestNotification(c *gin.Context) {
	report, err := nc.notifier.Broadcast(c.Request.Context(),
		"Hello World!",
		"This is a test notification from your NEPSE app.",
		map[string]string{
			"type":      "hello_world",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
