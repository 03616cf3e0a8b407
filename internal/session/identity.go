package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Roles the authority issues.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
)

// Identity is the authenticated account record returned by the authority.
type Identity struct {
	ID       ID     `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ID tolerates the authority sending account ids as either JSON strings
// or numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session: identity id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }
