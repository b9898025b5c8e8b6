package user

import (
	"errors"
	"reflect"
	"testing"
)

func validParams() SignUpParams {
	return SignUpParams{
		Profile: Profile{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Address1:    "1 Main St",
			City:        "Springfield",
			State:       "NY",
			PostalCode:  "11101",
			DateOfBirth: "1990-01-01",
			SSN:         "1234",
			Email:       "ada@example.com",
		},
		Password: "correct-horse",
	}
}

func TestSignUpParams_Validate(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	p := validParams()
	p.City = "  "
	p.Password = ""

	err := p.Validate()
	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("Validate() error = %v, want *MissingFieldsError", err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{"city", "password"}) {
		t.Errorf("Fields = %v, want [city password]", missing.Fields)
	}
}

func TestUser_FullName(t *testing.T) {
	u := &User{FirstName: "Ada", LastName: "Lovelace"}
	if got := u.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName() = %q", got)
	}
	if got := (&User{FirstName: "Ada"}).FullName(); got != "Ada" {
		t.Errorf("FullName() = %q, want Ada", got)
	}
}
