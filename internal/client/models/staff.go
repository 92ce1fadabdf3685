package models

import "time"

// Staff is a server-owned staff member record.
type Staff struct {
	ID          string      `json:"_id"`
	EmployeeID  string      `json:"employeeId"`
	Name        PersonName  `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	Department  string      `json:"department,omitempty"`
	Position    string      `json:"position,omitempty"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions,omitempty"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
}

// StaffInput is the staff create/update payload. Password fields are only
// sent on create.
type StaffInput struct {
	Name            PersonName `json:"name"`
	Email           string     `json:"email" validate:"required,email"`
	Phone           string     `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Department      string     `json:"department" validate:"required,oneof=Administration Academics Sports Arts Science"`
	Position        string     `json:"position" validate:"required,min=2,max=100"`
	Password        string     `json:"password,omitempty" validate:"omitempty,min=6"`
	ConfirmPassword string     `json:"confirmPassword,omitempty" validate:"eqfield=Password"`
}
