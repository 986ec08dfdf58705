package resolver

import "fmt"

// Code classifies why a URL could not be resolved.
type Code string

const (
	NotARepository     Code = "NOT_A_REPOSITORY"
	NotADirectory      Code = "NOT_A_DIRECTORY"
	RepositoryNotFound Code = "REPOSITORY_NOT_FOUND"
	BranchNotFound     Code = "BRANCH_NOT_FOUND"
)

// Message returns the user-facing explanation for the code.
func (c Code) Message() string {
	switch c {
	case NotARepository:
		return "not a valid GitHub repository URL"
	case NotADirectory:
		return "URL does not point to a directory"
	case RepositoryNotFound:
		return "repository not found; if it is private, pass a token with --token"
	case BranchNotFound:
		return "branch or reference not found"
	}
	return "unknown error occurred"
}

// ResolutionError is returned when a URL cannot be turned into a RepoRef.
// Resolution stops at the first such error.
type ResolutionError struct {
	Code Code
	URL  string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Code.Message())
}

// Is matches any ResolutionError with the same code, so callers can use
// errors.Is(err, resolver.ErrBranchNotFound).
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	return ok && t.Code == e.Code
}

var (
	ErrNotARepository     = &ResolutionError{Code: NotARepository}
	ErrNotADirectory      = &ResolutionError{Code: NotADirectory}
	ErrRepositoryNotFound = &ResolutionError{Code: RepositoryNotFound}
	ErrBranchNotFound     = &ResolutionError{Code: BranchNotFound}
)
