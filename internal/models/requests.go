package models

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128,strong_password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// LoginRequest is the body of POST /login. Fields are not tagged as required:
// missing values are answered like wrong ones.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /forgotPassword.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of PATCH /resetPassword/{token}.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=128,strong_password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// UpdatePasswordRequest is the body of PATCH /updateMyPassword.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=128,strong_password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}
