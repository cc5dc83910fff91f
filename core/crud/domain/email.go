package domain

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime/types"
)

// Email is an optional e-mail address. The empty string means "not set";
// any other value must be a well-formed address.
type Email string

func (e Email) Validate() error {
	if e == "" {
		return nil
	}
	raw, err := json.Marshal(string(e))
	if err != nil {
		return err
	}
	var checked types.Email
	return checked.UnmarshalJSON(raw)
}

func (e *Email) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if err := Email(s).Validate(); err != nil {
		return err
	}
	*e = Email(s)
	return nil
}
