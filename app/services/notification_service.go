package services

import (
	"context"
	"fmt"
	"log"
	"os"
)

// NotificationService handles customer-facing notifications
type NotificationService interface {
	SendSMS(ctx context.Context, mobile, message string) error
	SendEmail(ctx context.Context, email, subject, body string) error
}

// SMSProvider represents an SMS sending provider
type SMSProvider interface {
	SendSMS(ctx context.Context, mobile, message string) error
}

// EmailProvider represents an email sending provider
type EmailProvider interface {
	SendEmail(ctx context.Context, email, subject, body string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	smsProvider   SMSProvider
	emailProvider EmailProvider
	logger        *log.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(smsProvider SMSProvider, emailProvider EmailProvider) NotificationService {
	return &NotificationServiceImpl{
		smsProvider:   smsProvider,
		emailProvider: emailProvider,
		logger:        log.New(os.Stdout, "[NotificationService] ", log.LstdFlags),
	}
}

// SendSMS sends an SMS notification
func (n *NotificationServiceImpl) SendSMS(ctx context.Context, mobile, message string) error {
	if err := n.smsProvider.SendSMS(ctx, mobile, message); err != nil {
		n.logger.Printf("Failed to send SMS to %s: %v", mobile, err)
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	n.logger.Printf("SMS sent to %s", mobile)
	return nil
}

// SendEmail sends an email notification
func (n *NotificationServiceImpl) SendEmail(ctx context.Context, email, subject, body string) error {
	if err := n.emailProvider.SendEmail(ctx, email, subject, body); err != nil {
		n.logger.Printf("Failed to send email to %s: %v", email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Printf("Email sent to %s", email)
	return nil
}

// MockSMSProvider is a mock implementation for development and testing
type MockSMSProvider struct {
	logger *log.Logger
}

// NewMockSMSProvider creates a new mock SMS provider
func NewMockSMSProvider() SMSProvider {
	return &MockSMSProvider{
		logger: log.New(os.Stdout, "[MockSMS] ", log.LstdFlags),
	}
}

// SendSMS logs the SMS instead of sending it
func (m *MockSMSProvider) SendSMS(_ context.Context, mobile, message string) error {
	m.logger.Printf("SMS to %s: %s", mobile, message)
	return nil
}

// MockEmailProvider is a mock implementation for development and testing
type MockEmailProvider struct {
	logger *log.Logger
}

// NewMockEmailProvider creates a new mock email provider
func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{
		logger: log.New(os.Stdout, "[MockEmail] ", log.LstdFlags),
	}
}

// SendEmail logs the email instead of sending it
func (m *MockEmailProvider) SendEmail(_ context.Context, email, subject, _ string) error {
	m.logger.Printf("Email to %s: %s", email, subject)
	return nil
}
