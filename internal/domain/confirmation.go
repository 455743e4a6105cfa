package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// ConfirmationPayloadType is the fixed type tag of a delivery QR payload.
const ConfirmationPayloadType = "DELIVERY_CONFIRMATION"

// Confirmation code shape. The alphabet leaves out 0, O, 1 and I.
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// ErrInvalidPayload is returned when a scanned payload does not match the schema.
var ErrInvalidPayload = errors.New("invalid confirmation payload")

// ConfirmationPayload is the JSON encoded into the delivery QR code. Type,
// Code, TripID and CompanyID form the stable wire format; the remaining
// fields are for display only.
type ConfirmationPayload struct {
	Type         string   `json:"type"`
	Code         string   `json:"code"`
	TripID       string   `json:"tripId"`
	CompanyID    string   `json:"companyId"`
	DriverName   string   `json:"driverName,omitempty"`
	VehiclePlate string   `json:"vehiclePlate,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
}

// Encode returns the JSON form of p.
func (p ConfirmationPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePayload decodes and validates a scanned payload.
func ParsePayload(raw []byte) (ConfirmationPayload, error) {
	var p ConfirmationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ConfirmationPayload{}, ErrInvalidPayload
	}
	if p.Type != ConfirmationPayloadType {
		return ConfirmationPayload{}, ErrInvalidPayload
	}
	if !ValidCode(p.Code) || strings.TrimSpace(p.TripID) == "" {
		return ConfirmationPayload{}, ErrInvalidPayload
	}
	return p, nil
}

// ValidCode reports whether code has the confirmation code shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}

// NormalizeCode uppercases and trims a typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
