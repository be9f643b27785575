package constants

// Base Routes
const (
	APIBasePath = "/api"
	HealthPath  = "/health"
	VersionPath = "/version"
)

// Account Routes
const (
	UsersBasePath          = "/api/v1/users"
	UserSignupPath         = "/signup"
	UserLoginPath          = "/login"
	UserLogoutPath         = "/logout"
	UserForgotPasswordPath = "/forgotPassword"
	UserResetPasswordPath  = "/resetPassword/{token}"
	UserUpdatePasswordPath = "/updateMyPassword"
	UserMePath             = "/me"
)

// URL Parameters
const (
	ParamResetToken = "token"
)
