package onboarding

import "github.com/BuildWithWisdom/VentroPay/internal/identity"

// Status classifies how much of a user's profile is complete.
type Status string

const (
	StatusNeedsEmail        Status = "NEEDS_EMAIL"
	StatusNeedsVerification Status = "NEEDS_VERIFICATION"
	StatusNeedsFullName     Status = "NEEDS_FULL_NAME"
	StatusOnboarded         Status = "ONBOARDED"
)

// StatusFor derives the onboarding status from the user record. The checks
// run in priority order: a missing email wins over a missing name.
func StatusFor(user *identity.User) Status {
	switch {
	case user.Email == "":
		return StatusNeedsEmail
	case !user.EmailVerified:
		return StatusNeedsVerification
	case user.FullName == nil || user.FullName.First == "":
		return StatusNeedsFullName
	default:
		return StatusOnboarded
	}
}
