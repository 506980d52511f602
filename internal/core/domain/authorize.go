package domain

// Authorize checks p against the roles allowed for an operation. Admins pass
// everywhere; everyone else must hold one of allowed.
func Authorize(p Principal, allowed ...Role) error {
	if p.Role == RoleAdmin {
		return nil
	}
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
