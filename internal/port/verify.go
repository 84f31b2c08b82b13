package port

// Verifier checks a copied directory tree against its source.
//
// Implementations return a *domain.VerificationError when the
// destination is missing files or differs from the source; what
// "differs" means (size, checksum) is up to the implementation.
type Verifier interface {
	Verify(source, destination string) error
}
