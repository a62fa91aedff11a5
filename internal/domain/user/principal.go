package user

// Principal is the caller identity returned by the token introspection
// collaborator.
type Principal struct {
	UserID string
	Email  string
}
