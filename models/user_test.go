package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordHashing(t *testing.T) {
	u := &User{Email: "user@example.com"}
	require.NoError(t, u.SetPassword("correct horse battery"))

	assert.NotEqual(t, "correct horse battery", u.PasswordHash)
	assert.True(t, u.CheckPassword("correct horse battery"))
	assert.False(t, u.CheckPassword("wrong password"))
	assert.False(t, u.CheckPassword(""))
}

func TestAlertValidators(t *testing.T) {
	assert.True(t, IsValidAlertCondition(AlertConditionAbove))
	assert.True(t, IsValidAlertCondition(AlertConditionBelow))
	assert.False(t, IsValidAlertCondition("equals"))

	assert.True(t, IsValidAlertMode(AlertModeOneTime))
	assert.True(t, IsValidAlertMode(AlertModeRecurring))
	assert.False(t, IsValidAlertMode("weekly"))
}
