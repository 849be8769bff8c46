package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
	ErrTooManyRequests     = "Too many requests. Please try again later."
	ErrInternalServerError = "Internal server error"
	ErrBillNotFound        = "Bill not found"

	MsgLoginFailed       = "Student login failed. Please try again."
	MsgResetFailed       = "Server error"
	MsgResetDone         = "Password reset successful!"
	MsgCodeSent          = "Verification code sent to your email"
	MsgCodeVerified      = "Code verified successfully. Now enter your passwords."
	MsgPasswordChanged   = "Password changed successfully! You will be logged out in 3 seconds..."
	MsgAccountFailed     = "An error occurred"
	MsgBillingFailed     = "Could not update the bill. Please try again."
	MsgTicketFailed      = "Failed to submit ticket. Please try again later."
	MsgBillsFailed       = "Failed to load bills. Please try again."
	MsgGoogleUnavailable = "Google sign-in is not configured"
	MsgGoogleFailed      = "Google sign-in failed. Please try again."

	// Landing page after a sign-in without a next parameter
	DefaultLandingPath = "/student-portal"

	siteName = "Student Portal"
)
