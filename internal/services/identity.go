package services

import "regexp"

// identityPattern is deliberately strict: identities are spliced into
// sudo and setfacl invocations, so nothing beyond plain alphanumerics is
// accepted.
var identityPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateIdentity rejects OS user or group names that are not plain
// alphanumeric identifiers.
func ValidateIdentity(name string) error {
	if !identityPattern.MatchString(name) {
		return Wrap(ErrValidation, "services", "validate identity", "invalid user or group name "+name, nil)
	}
	return nil
}
