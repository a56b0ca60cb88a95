package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// BlitzID is a value object representing a unique blitz identifier
type BlitzID struct {
	value string
}

// NewBlitzID creates a new random BlitzID
func NewBlitzID() BlitzID {
	return BlitzID{value: uuid.New().String()}
}

// NewBlitzIDFromString creates a BlitzID from an existing string
func NewBlitzIDFromString(id string) (BlitzID, error) {
	if id == "" {
		return BlitzID{}, errors.New("blitz ID cannot be empty")
	}
	if !isValidUUID(id) {
		return BlitzID{}, errors.New("blitz ID must be a valid UUID")
	}
	return BlitzID{value: id}, nil
}

// String returns the string representation of the BlitzID
func (id BlitzID) String() string {
	return id.value
}

// Equals checks if two BlitzIDs are equal
func (id BlitzID) Equals(other BlitzID) bool {
	return id.value == other.value
}

// IsZero checks if the BlitzID is the zero value
func (id BlitzID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id BlitzID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *BlitzID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("BlitzID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
