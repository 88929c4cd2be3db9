package domain

// DevelopmentalDomain identifies a skill area a worksheet targets and a
// screening scores, e.g. communication or fine motor control.
type DevelopmentalDomain string

// Developmental domains recognized by worksheets and screenings.
const (
	DomainCommunication   DevelopmentalDomain = "COMMUNICATION"
	DomainGrossMotor      DevelopmentalDomain = "GROSS_MOTOR"
	DomainFineMotor       DevelopmentalDomain = "FINE_MOTOR"
	DomainProblemSolving  DevelopmentalDomain = "PROBLEM_SOLVING"
	DomainSocialEmotional DevelopmentalDomain = "SOCIAL_EMOTIONAL"
	DomainSelfCare        DevelopmentalDomain = "SELF_CARE"
	DomainCognitive       DevelopmentalDomain = "COGNITIVE"
	DomainSensory         DevelopmentalDomain = "SENSORY"
)

// IsValidDomain checks if the given value is a recognized developmental domain.
func IsValidDomain(d DevelopmentalDomain) bool {
	switch d {
	case DomainCommunication, DomainGrossMotor, DomainFineMotor,
		DomainProblemSolving, DomainSocialEmotional, DomainSelfCare,
		DomainCognitive, DomainSensory:
		return true
	default:
		return false
	}
}

// ValidateDomains checks a target-domain set: it must be non-empty and every
// entry must be a recognized domain.
func ValidateDomains(domains []DevelopmentalDomain) error {
	if len(domains) == 0 {
		return NewValidationError("targetDomains", "must contain at least one domain", ErrValidation)
	}
	for _, d := range domains {
		if !IsValidDomain(d) {
			return NewValidationError("targetDomains", "unknown domain "+string(d), ErrValidation)
		}
	}
	return nil
}
