package driven

// CredentialProvider is one source in the ordered credential chain.
type CredentialProvider interface {
	// Name identifies the provider in error messages.
	Name() string

	// Lookup returns the value for key and whether it was found.
	Lookup(key string) (string, bool, error)
}
