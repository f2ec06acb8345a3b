package domain

// Identity is the request-scoped view of the authenticated user. It is
// derived from the freshly loaded user record (not the token) by the
// auth middleware and never persisted beyond the request.
type Identity struct {
	ID         string
	IsAdmin    bool
	IsVerified bool
}
