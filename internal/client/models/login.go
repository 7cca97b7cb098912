package models

import "time"

// LoginType distinguishes sign-in from sign-up attempts.
type LoginType string

const (
	LoginTypeSignIn LoginType = "signin"
	LoginTypeSignUp LoginType = "signup"
)

// LoginAttempt is a row of the login_history table.
type LoginAttempt struct {
	ID           string    `json:"id,omitempty"`
	UserID       *string   `json:"user_id"`
	Email        string    `json:"email"`
	LoginType    LoginType `json:"login_type"`
	UserAgent    string    `json:"user_agent"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// DeviceType is the coarse device classification derived from a user agent.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// LoginSession is a row of the user_login_sessions table.
type LoginSession struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionToken string     `json:"session_token"`
	IPAddress    *string    `json:"ip_address"`
	UserAgent    *string    `json:"user_agent"`
	LoginTime    time.Time  `json:"login_time"`
	LastActivity time.Time  `json:"last_activity"`
	IsActive     bool       `json:"is_active"`
	LogoutTime   *time.Time `json:"logout_time"`
	DeviceType   DeviceType `json:"device_type"`
	Location     *string    `json:"location"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewLoginSession is the insert payload for LoginSession.
type NewLoginSession struct {
	UserID       string     `json:"user_id"`
	SessionToken string     `json:"session_token"`
	IPAddress    *string    `json:"ip_address"`
	UserAgent    *string    `json:"user_agent"`
	DeviceType   DeviceType `json:"device_type"`
	Location     *string    `json:"location"`
	LoginTime    time.Time  `json:"login_time"`
	LastActivity time.Time  `json:"last_activity"`
	IsActive     bool       `json:"is_active"`
}
