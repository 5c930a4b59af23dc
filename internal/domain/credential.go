package domain

// Credential is an opaque DigitalOcean API bearer token.
// It is read-only after startup and must never be logged in full.
type Credential string

const redactedPrefixLen = 8

// Empty reports whether no token was supplied.
func (c Credential) Empty() bool { return c == "" }

// Token returns the raw token for use in an Authorization header.
func (c Credential) Token() string { return string(c) }

// Redacted returns a bounded prefix of the token suitable for diagnostics.
func (c Credential) Redacted() string {
	if c == "" {
		return "(unset)"
	}
	r := []rune(string(c))
	if len(r) <= redactedPrefixLen {
		return "****"
	}
	return string(r[:redactedPrefixLen]) + "..."
}

// String implements fmt.Stringer so that %v and %s print the redacted form.
func (c Credential) String() string { return c.Redacted() }

// GoString keeps %#v from printing the token either.
func (c Credential) GoString() string { return "domain.Credential(" + c.Redacted() + ")" }
