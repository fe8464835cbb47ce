package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a teacher.
type LoginRequest struct {
	EmployeeNumber int    `json:"employee_number" validate:"required,min=1,max=9999999"`
	Password       string `json:"password" validate:"required,min=7"`
}

// LoginResponse returns the issued token and basic identity info.
type LoginResponse struct {
	Token          string `json:"token"`
	Name           string `json:"name"`
	EmployeeNumber string `json:"employee_number"`
	Roles          []int  `json:"roles"`
}

// JWTClaims is the verified principal attached to each request: the teacher
// id, display name and the role levels derived from assignment categories.
type JWTClaims struct {
	TeacherID string `json:"_id"`
	Name      string `json:"name"`
	Roles     []int  `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the principal carries the given role level.
func (c *JWTClaims) HasRole(level int) bool {
	for _, role := range c.Roles {
		if role == level {
			return true
		}
	}
	return false
}
