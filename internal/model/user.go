// Package model defines domain entities for the application.
package model

// User is a row of the users table. ID is the unique key.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
