// Package auth resolves inbound principals to canonical local accounts.
//
// A principal is either an external assertion (claims issued and verified by
// the identity provider) or a legacy credential pair. Every mail or service
// operation runs on behalf of the account this package resolves.
package auth

// ExternalAssertion is a verified claim set from the identity provider.
// The claims are trusted as already cryptographically verified upstream.
type ExternalAssertion struct {
	SubjectID string
	Email     string
	Name      string
}

// Credentials is a legacy email/secret pair for accounts created before
// the identity provider was introduced.
type Credentials struct {
	Email  string
	Secret string
}
