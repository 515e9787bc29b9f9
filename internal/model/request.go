package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language"`
}

type CSRFResponse struct {
	Token     string `json:"csrf_token"`
	ExpiresIn int64  `json:"expires_in"`
}
