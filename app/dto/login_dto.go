package dto

// LoginRequest represents the request for customer login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`    // Account email
	Password string `json:"password" validate:"required,min=8"` // Account password
}

// RefreshTokenRequest represents the request to exchange a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"` // Previously issued refresh token
}

// TokenPairDTO represents an issued token pair
type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`  // Short-lived bearer token
	RefreshToken string `json:"refresh_token"` // Long-lived exchange token
	TokenType    string `json:"token_type"`    // Always "Bearer"
	ExpiresIn    int    `json:"expires_in"`    // Access token lifetime in seconds
}

// LoginResponse represents a successful login
type LoginResponse struct {
	CustomerUUID string       `json:"customer_uuid"` // Account identifier
	Email        string       `json:"email"`         // Account email
	FullName     string       `json:"full_name"`     // Display name
	Tokens       TokenPairDTO `json:"tokens"`        // Issued tokens
}
