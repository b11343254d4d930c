// Package testing provides test utilities and database setup for the number store test suite
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active customer with a bcrypt hash of "TestPass123!"
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// create random number containing exactly 9 digits
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	customer := &models.Customer{
		FirstName:       "John",
		LastName:        "Doe",
		Mobile:          fmt.Sprintf("+1555%s", randomDigits[:7]),
		Email:           fmt.Sprintf("john.doe.%s@example.com", randomDigits),
		PasswordHash:    string(hashedPassword),
		IsActive:        utils.ToPtr(true),
		IsEmailVerified: utils.ToPtr(true),
	}

	err = tf.DB.DB.Create(customer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateTestOrder creates an order for the given customer with a unique
// checkout session identifier
func (tf *TestFixtures) CreateTestOrder(customerID uint) (*models.Order, error) {
	order := &models.Order{
		CustomerID:        customerID,
		CheckoutSessionID: fmt.Sprintf("cs_test_%s", uuid.New().String()),
		SubscriptionRef:   fmt.Sprintf("sub_test_%d", rand.Intn(10000000)),
		TotalAmount:       1500,
		Currency:          "USD",
	}

	err := tf.DB.DB.Create(order).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}

	return order, nil
}

// CreateTestPurchasedNumber creates a purchased number in the given
// provisioning status, attached to the customer and order
func (tf *TestFixtures) CreateTestPurchasedNumber(customerID, orderID uint, status models.ProvisioningStatus) (*models.PurchasedNumber, error) {
	number := &models.PurchasedNumber{
		CustomerID:         customerID,
		OrderID:            orderID,
		CheckoutSessionID:  fmt.Sprintf("cs_test_%s", uuid.New().String()),
		PhoneNumber:        fmt.Sprintf("+1212555%04d", rand.Intn(10000)),
		CountryCode:        "US",
		AreaCode:           "212",
		MonthlyPrice:       500,
		SetupPrice:         1000,
		ProvisioningStatus: status,
		IsActive:           utils.ToPtr(status == models.ProvisioningStatusActive),
		SMSEnabled:         utils.ToPtr(true),
	}

	if status == models.ProvisioningStatusActive {
		providerID := fmt.Sprintf("prov_%d", rand.Intn(10000000))
		now := time.Now().UTC()
		number.ProviderNumberID = &providerID
		number.ProvisionedAt = &now
	}
	if status == models.ProvisioningStatusFailed {
		number.StatusReason = "provider rejected allocation"
	}

	err := tf.DB.DB.Create(number).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test purchased number: %w", err)
	}

	return number, nil
}

// CreateTestProvisioningTask creates a queue entry for the given number
func (tf *TestFixtures) CreateTestProvisioningTask(numberID uint, status models.ProvisioningTaskStatus, priority int) (*models.ProvisioningTask, error) {
	task := &models.ProvisioningTask{
		PurchasedNumberID: numberID,
		Operation:         models.ProvisioningOperationProvision,
		Priority:          priority,
		Status:            status,
	}

	if status == models.ProvisioningTaskStatusFailed {
		task.FailureReason = "provider timeout"
	}

	err := tf.DB.DB.Create(task).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test provisioning task: %w", err)
	}

	return task, nil
}

// CreateTestSmsConfiguration creates an SMS configuration row for the given number
func (tf *TestFixtures) CreateTestSmsConfiguration(numberID uint, autoReply bool, message string) (*models.SmsConfiguration, error) {
	config := &models.SmsConfiguration{
		PurchasedNumberID: numberID,
		AutoReplyEnabled:  utils.ToPtr(autoReply),
		AutoReplyMessage:  message,
	}

	err := tf.DB.DB.Create(config).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test SMS configuration: %w", err)
	}

	return config, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
