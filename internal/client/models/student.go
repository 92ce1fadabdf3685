package models

import "time"

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	PinCode string `json:"pinCode,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type ContactInfo struct {
	Address          Address          `json:"address"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
}

type Parent struct {
	Name       string `json:"name,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

type ParentInfo struct {
	Father Parent `json:"father"`
	Mother Parent `json:"mother"`
}

// Photo is a student's profile photo. A nil URL means "no photo".
type Photo struct {
	URL *string `json:"url"`
}

// Student is a server-owned student record. The console never edits a
// Student in place; changes go through the API and the returned record
// replaces the cached one.
type Student struct {
	ID                string      `json:"_id"`
	StudentID         string      `json:"studentId"`
	Name              PersonName  `json:"name"`
	Email             string      `json:"email,omitempty"`
	DateOfBirth       *time.Time  `json:"dateOfBirth,omitempty"`
	Gender            string      `json:"gender,omitempty"`
	Standard          string      `json:"standard,omitempty"`
	Section           string      `json:"section,omitempty"`
	RollNumber        string      `json:"rollNumber,omitempty"`
	OverallGrade      string      `json:"overallGrade,omitempty"`
	OverallPercentage *float64    `json:"overallPercentage,omitempty"`
	BloodGroup        string      `json:"bloodGroup,omitempty"`
	ContactInfo       ContactInfo `json:"contactInfo"`
	ParentInfo        ParentInfo  `json:"parentInfo"`
	ProfilePhoto      Photo       `json:"profilePhoto"`
	IsActive          bool        `json:"isActive"`
	CreatedAt         *time.Time  `json:"createdAt,omitempty"`
}

// StudentInput is the create/update payload. Fields are validated client
// side before the request is sent.
type StudentInput struct {
	Name              PersonName  `json:"name"`
	Email             string      `json:"email,omitempty" validate:"omitempty,email"`
	DateOfBirth       string      `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender            string      `json:"gender" validate:"required,oneof=Male Female Other"`
	Standard          string      `json:"standard" validate:"required,oneof=KG 1st 2nd 3rd 4th 5th 6th 7th 8th 9th 10th 11th 12th"`
	Section           string      `json:"section" validate:"required,oneof=A B C D"`
	RollNumber        string      `json:"rollNumber" validate:"required,numeric"`
	OverallGrade      string      `json:"overallGrade,omitempty" validate:"omitempty,oneof=A+ A B+ B C+ C D F"`
	OverallPercentage *float64    `json:"overallPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	BloodGroup        string      `json:"bloodGroup,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	ContactInfo       ContactInfo `json:"contactInfo"`
	ParentInfo        ParentInfo  `json:"parentInfo"`
}
