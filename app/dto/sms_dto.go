package dto

import "time"

// SmsConfigurationDTO represents per-number SMS settings in API responses
type SmsConfigurationDTO struct {
	NumberUUID       string    `json:"number_uuid"`        // Owning number
	AutoReplyEnabled bool      `json:"auto_reply_enabled"` // Whether inbound messages get an automatic reply
	AutoReplyMessage string    `json:"auto_reply_message"` // Reply text, empty when disabled
	UpdatedAt        time.Time `json:"updated_at"`         // Last configuration change
}

// UpdateSmsConfigurationRequest represents a partial SMS settings update
type UpdateSmsConfigurationRequest struct {
	AutoReplyEnabled *bool   `json:"auto_reply_enabled,omitempty"`                       // Toggle auto-reply
	AutoReplyMessage *string `json:"auto_reply_message,omitempty" validate:"omitempty,max=1000"` // New reply text
}

// SendTestSmsRequest represents an outbound test message from an owned number
type SendTestSmsRequest struct {
	To      string `json:"to" validate:"required,min=5,max=20"`       // Recipient number
	Message string `json:"message" validate:"required,min=1,max=1000"` // Message body
}

// SendTestSmsResponse acknowledges a dispatched test message
type SendTestSmsResponse struct {
	NumberUUID string    `json:"number_uuid"` // Sending number
	To         string    `json:"to"`          // Recipient
	SentAt     time.Time `json:"sent_at"`     // Dispatch time
}
