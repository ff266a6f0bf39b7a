package controllers

import (
	"net/http"
	"strings"

	"github.com/Ash-333/nepse-data/middleware"
	"github.com/Ash-333/nepse-data/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertController manages a user's price alerts
type AlertController struct {
	db *gorm.DB
}

// NewAlertController creates the controller
func NewAlertController(db *gorm.DB) *AlertController {
	return &AlertController{db: db}
}

type createAlertRequest struct {
	Ticker      string          `json:"ticker" binding:"required"`
	TargetPrice decimal.Decimal `json:"target_price" binding:"required"`
	Condition   string          `json:"condition" binding:"required"`
	Mode        string          `json:"mode"`
}

// ListAlerts returns the authenticated user's alerts
func (ac *AlertController) ListAlerts(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var alerts []models.PriceAlert
	if err := ac.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

// CreateAlert creates a price alert for the authenticated user
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !models.IsValidAlertCondition(req.Condition) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "condition must be 'above' or 'below'"})
		return
	}
	if req.Mode == "" {
		req.Mode = models.AlertModeOneTime
	}
	if !models.IsValidAlertMode(req.Mode) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "mode must be 'one-time' or 'recurring'"})
		return
	}
	if req.TargetPrice.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target_price must be positive"})
		return
	}

	alert := models.PriceAlert{
		UserID:      userID,
		Ticker:      strings.ToUpper(req.Ticker),
		TargetPrice: req.TargetPrice,
		Condition:   req.Condition,
		Mode:        req.Mode,
	}
	if err := ac.db.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create alert"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": alert})
}

// DeleteAlert removes one of the authenticated user's alerts
func (ac *AlertController) DeleteAlert(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	result := ac.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).Delete(&models.PriceAlert{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete alert"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
