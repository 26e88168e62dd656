package security

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}
