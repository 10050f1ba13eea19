package execution

// Submission is an immutable request to execute code on the judge service.
type Submission struct {
	SourceCode string
	LanguageID int
	Stdin      string
}

// Handle identifies a pending or completed run on the judge service.
// The judge service, not this system, owns the underlying execution resource.
type Handle struct {
	Token string
}
