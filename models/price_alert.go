package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceAlert is a user-defined price threshold on a NEPSE ticker
type PriceAlert struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"index" json:"user_id"`
	User            User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Ticker          string          `gorm:"index;not null" json:"ticker"`
	TargetPrice     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"target_price"`
	Condition       string          `gorm:"not null" json:"condition"` // above, below
	Mode            string          `gorm:"default:'one-time'" json:"mode"` // one-time, recurring
	Triggered       bool            `gorm:"default:false;index" json:"triggered"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Alert condition constants
const (
	AlertConditionAbove = "above"
	AlertConditionBelow = "below"
)

// Alert mode constants
const (
	AlertModeOneTime   = "one-time"
	AlertModeRecurring = "recurring"
)

// IsValidAlertCondition checks if the condition is valid
func IsValidAlertCondition(condition string) bool {
	return condition == AlertConditionAbove || condition == AlertConditionBelow
}

// IsValidAlertMode checks if the mode is valid
func IsValidAlertMode(mode string) bool {
	return mode == AlertModeOneTime || mode == AlertModeRecurring
}

// MigrateAlertModels runs database migrations for alert models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(&PriceAlert{})
}
