package resource

// SanitizeUser returns a copy of u with write-only fields stripped for
// outbound serialization (spec.md §3, §4.9). password must never appear in
// any response, including the one returned from create.
func SanitizeUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Password = ""
	return &out
}

// SanitizeUsers returns a new slice of sanitized copies; the input slice
// and its users are left unchanged.
func SanitizeUsers(users []*User) []*User {
	out := make([]*User, len(users))
	for i, u := range users {
		out[i] = SanitizeUser(u)
	}
	return out
}
