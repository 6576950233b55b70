// Package identity is the client for the externally owned user record store
// (Supabase) and its email one-time-passcode channel.
package identity

// StructuredPhone is the JSONB phone shape stored next to the E.164 text
// column.
type StructuredPhone struct {
	Code   string `json:"code"`
	Number string `json:"number"`
}

// FullName is the JSONB structured name column.
type FullName struct {
	First string `json:"first_name"`
	Last  string `json:"last_name"`
}

// User is the externally owned user record. Action handlers read these
// fields to decide which onboarding actions are semantically valid and write
// them as actions succeed; this process never owns the record.
type User struct {
	ID                   string           `json:"id"`
	PhoneNumberText      string           `json:"phone_number_text"`
	PhoneNumber          *StructuredPhone `json:"phone_number,omitempty"`
	Email                string           `json:"email,omitempty"`
	EmailVerified        bool             `json:"email_verified"`
	FullName             *FullName        `json:"full_name,omitempty"`
	NIN                  string           `json:"nin,omitempty"`
	CustomerID           string           `json:"flutterwave_customer_id,omitempty"`
	VirtualAccountNumber string           `json:"flutterwave_virtual_account_number,omitempty"`
	VirtualBankName      string           `json:"flutterwave_virtual_bank_name,omitempty"`
}
