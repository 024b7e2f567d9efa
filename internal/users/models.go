package users

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errAgeType = errors.New("age must be a number or a string")

// User represents a registered user as exposed over the API
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Age   string `json:"age"`
}

// Age is the textual age accepted on input. Clients send either a JSON
// number (30) or a JSON string ("30"); both decode to the same text.
type Age string

// UnmarshalJSON accepts numbers and strings
func (a *Age) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Age(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errAgeType
	}
	*a = Age(n.String())
	return nil
}

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Email string `json:"email" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Age   Age    `json:"age" validate:"required,age"`
}

// UpdateUserRequest carries a partial update; nil fields are left untouched
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty" validate:"omitnil,min=1"`
	Name  *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Age   *Age    `json:"age,omitempty" validate:"omitnil,age"`
}

// IsEmpty reports whether the update names no field at all
func (r *UpdateUserRequest) IsEmpty() bool {
	return r.Email == nil && r.Name == nil && r.Age == nil
}

// ListUsersRequest holds optional exact-match filters. Empty values mean
// "no filter" for that attribute.
type ListUsersRequest struct {
	Name  string `form:"name"`
	Email string `form:"email"`
	Age   string `form:"age"`
}
