// Package resource defines the canonical SCIM resource shapes shared by the
// filter engine, the store implementations, and the HTTP layer.
package resource

import "encoding/json"

const (
	SchemaUser         = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup        = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaListResponse = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaError        = "urn:ietf:params:scim:api:messages:2.0:Error"
	SchemaPatchOp       = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
)

// Boolean accepts both JSON booleans and the "true"/"false" string forms some
// IdPs send on the wire.
type Boolean bool

func (b *Boolean) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*b = Boolean(val)
	case string:
		*b = Boolean(val == "true" || val == "True" || val == "TRUE")
	}
	return nil
}

func (b Boolean) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// Name holds the nested name components of a User.
type Name struct {
	Formatted  string `json:"formatted,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
}

// Email is a single entry of User.emails.
type Email struct {
	Value   string  `json:"value"`
	Primary Boolean `json:"primary,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// GroupRef is a derived entry of User.groups.
type GroupRef struct {
	Value       string `json:"value"`
	Display     string `json:"display,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// MemberRef is an entry of Group.members.
type MemberRef struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

// User is the canonical SCIM User resource (spec.md §3).
type User struct {
	ID          string         `json:"id,omitempty"`
	ExternalID  string         `json:"externalId,omitempty"`
	Schemas     []string       `json:"schemas"`
	UserName    string         `json:"userName"`
	DisplayName string         `json:"displayName,omitempty"`
	Name        *Name          `json:"name,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	Active      *bool          `json:"active,omitempty"`
	Password    string         `json:"password,omitempty"`
	Emails      []Email        `json:"emails,omitempty"`
	Groups      []GroupRef     `json:"groups,omitempty"`

	// Extensions holds custom-schema attributes keyed by schema URI, e.g.
	// "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User". Populated
	// and consumed via MarshalJSON/UnmarshalJSON so they sit alongside the
	// named fields above on the wire instead of nesting under a Go field name.
	Extensions map[string]any `json:"-"`
}

// Group is the canonical SCIM Group resource (spec.md §3).
type Group struct {
	ID          string      `json:"id,omitempty"`
	Schemas     []string    `json:"schemas"`
	DisplayName string      `json:"displayName"`
	Members     []MemberRef `json:"members,omitempty"`
}

// BoolPtr returns a pointer to b, mirroring the teacher's scim.Bool helper.
func BoolPtr(b bool) *bool { return &b }

// MarshalJSON flattens Extensions alongside the named User fields.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	base, err := json.Marshal(alias(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extensions) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for schemaURI, attrs := range u.Extensions {
		raw, err := json.Marshal(attrs)
		if err != nil {
			return nil, err
		}
		m[schemaURI] = raw
	}
	return json.Marshal(m)
}

// UnmarshalJSON captures any schema-URI-prefixed top-level keys into
// Extensions, leaving the named fields to the default decoder.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = User(a)

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, raw := range m {
		if !isSchemaURI(key) {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if u.Extensions == nil {
			u.Extensions = make(map[string]any)
		}
		u.Extensions[key] = v
	}
	return nil
}

func isSchemaURI(key string) bool {
	return len(key) > 4 && key[:4] == "urn:"
}
