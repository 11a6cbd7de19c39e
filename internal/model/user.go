package model

import "time"

// User is a registered account. PasswordHash never leaves the service through Public.
type User struct {
	UserID           string    `json:"userId"`
	FullName         string    `json:"fullName"`
	EmailAddress     string    `json:"emailAddress"`
	ContactNumber    string    `json:"contactNumber,omitempty"`
	Address          string    `json:"address,omitempty"`
	UserType         string    `json:"userType"`
	PasswordHash     string    `json:"passwordHash,omitempty"`
	Active           bool      `json:"active"`
	ImagePath        string    `json:"imagePath,omitempty"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Public returns a copy safe to hand to clients
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

const (
	UserTypeCustomer = "customer"
	UserTypeSeller   = "seller"
	UserTypeAdmin    = "admin"
)
