package dto

// LoginRequest for operator login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MeResponse describes the authenticated operator.
type MeResponse struct {
	Username  string `json:"username"`
	SessionID string `json:"sessionId"`
}
