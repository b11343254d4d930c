package services

import "github.com/amirphl/Gashadokuro/models"

// Authorizer decides which customers may perform operator actions such as
// requeueing failed provisioning tasks.
type Authorizer interface {
	IsAdmin(customer *models.Customer) bool
}

// ConfigAuthorizer grants operator rights to a fixed allow-list of customer
// emails loaded from configuration.
type ConfigAuthorizer struct {
	adminEmails map[string]struct{}
}

// NewConfigAuthorizer creates an authorizer from the configured admin emails
func NewConfigAuthorizer(adminEmails []string) Authorizer {
	set := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		set[email] = struct{}{}
	}
	return &ConfigAuthorizer{adminEmails: set}
}

// IsAdmin reports whether the customer is on the operator allow-list
func (a *ConfigAuthorizer) IsAdmin(customer *models.Customer) bool {
	if customer == nil {
		return false
	}
	_, ok := a.adminEmails[customer.Email]
	return ok
}
