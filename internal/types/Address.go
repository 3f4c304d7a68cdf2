package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AddressSize is the fixed byte length of every identity and record address.
const AddressSize = 32

// Address is a 32-byte reference used for caller identities, custody accounts
// and derived record addresses. The ledger never interprets its contents; it
// only compares addresses for equality and uses them as store keys.
type Address [AddressSize]byte

// AddressFromBytes copies b into an Address. The input must be exactly 32 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromHex parses a 64-character hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address hex: %w", err)
	}
	return AddressFromBytes(b)
}

// Bytes returns the address as a fresh byte slice.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// String renders the address as lowercase hex.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Equal reports whether two addresses are byte-identical.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a[:], other[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes an address from a hex string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := AddressFromHex(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
