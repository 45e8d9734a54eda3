package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/config"
)

func TestEmailService_NotificationTemplate(t *testing.T) {
	svc, err := NewEmailService(&config.Config{PublicURL: "https://alumni.example.com"})
	require.NoError(t, err)

	body, err := svc.GenerateEmailBody("notification_email.html", struct {
		Title   string
		Name    string
		Message string
		Link    string
	}{
		Title:   "Your alumni profile was approved",
		Name:    "Kasun <K>",
		Message: "Welcome!",
		Link:    "https://alumni.example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Your alumni profile was approved")
	assert.Contains(t, body, "Kasun &lt;K&gt;")
	assert.Contains(t, body, `href="https://alumni.example.com"`)

	_, err = svc.GenerateEmailBody("missing.html", nil)
	assert.Error(t, err)
}
