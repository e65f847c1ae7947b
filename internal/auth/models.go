package auth

// DevAuthResponse carries the dev-mode access token.
type DevAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// DevAuthRequest optionally names the user to mint a token for.
type DevAuthRequest struct {
	UserID string `json:"user_id"`
}
