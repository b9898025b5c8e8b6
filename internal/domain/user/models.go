package user

import (
	"errors"
	"strings"
)

var ErrUserNotFound = errors.New("user not found")

// User is the locally stored profile of an enrolled customer. UserID is the
// identity account that owns it.
type User struct {
	ID                string `json:"id"`
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Address1          string `json:"address1"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postalCode"`
	DateOfBirth       string `json:"dateOfBirth"`
	SSN               string `json:"-"`
	DwollaCustomerID  string `json:"dwollaCustomerId"`
	DwollaCustomerURL string `json:"dwollaCustomerUrl"`
}

// FullName is "First Last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile holds the personal data collected at enrollment.
type Profile struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
	Email       string `json:"email"`
}

type SignUpParams struct {
	Profile
	Password string `json:"password"`
}

// Validate checks that every enrollment field is present.
func (p SignUpParams) Validate() error {
	fields := []struct{ name, value string }{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"address1", p.Address1},
		{"city", p.City},
		{"state", p.State},
		{"postalCode", p.PostalCode},
		{"dateOfBirth", p.DateOfBirth},
		{"ssn", p.SSN},
		{"email", p.Email},
		{"password", p.Password},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

type CreateParams struct {
	Profile
	UserID            string
	DwollaCustomerID  string
	DwollaCustomerURL string
}
