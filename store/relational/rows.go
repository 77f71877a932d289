package relational

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/scimcore/idp-gateway/resource"
)

// userRow is the scan target for a projected user read: the base columns
// plus two aggregated JSON array columns built by the read query.
type userRow struct {
	ID               string         `db:"id"`
	ExternalID       sql.NullString `db:"external_id"`
	Locale           sql.NullString `db:"locale"`
	NameJSON         sql.NullString `db:"name"`
	SchemasJSON      string         `db:"schemas"`
	UserName         string         `db:"username"`
	DisplayName      sql.NullString `db:"display_name"`
	CustomAttrsJSON  sql.NullString `db:"custom_attributes"`
	Password         sql.NullString `db:"password"`
	Active           bool           `db:"active"`
	EmailsJSON       string         `db:"emails_json"`
	GroupsJSON       string         `db:"groups_json"`
	Total            int            `db:"total"`
}

func (r userRow) toResource() (*resource.User, error) {
	u := &resource.User{
		ID:       r.ID,
		UserName: r.UserName,
		Active:   resource.BoolPtr(r.Active),
	}
	if r.ExternalID.Valid {
		u.ExternalID = r.ExternalID.String
	}
	if r.Locale.Valid {
		u.Locale = r.Locale.String
	}
	if r.DisplayName.Valid {
		u.DisplayName = r.DisplayName.String
	}
	if r.Password.Valid {
		u.Password = r.Password.String
	}
	if err := json.Unmarshal([]byte(r.SchemasJSON), &u.Schemas); err != nil {
		return nil, err
	}
	if r.NameJSON.Valid && r.NameJSON.String != "" && r.NameJSON.String != "null" {
		var name resource.Name
		if err := json.Unmarshal([]byte(r.NameJSON.String), &name); err != nil {
			return nil, err
		}
		u.Name = &name
	}
	if r.CustomAttrsJSON.Valid && r.CustomAttrsJSON.String != "" && r.CustomAttrsJSON.String != "null" {
		var ext map[string]any
		if err := json.Unmarshal([]byte(r.CustomAttrsJSON.String), &ext); err == nil && len(ext) > 0 {
			u.Extensions = ext
		}
	}

	var emails []resource.Email
	if err := json.Unmarshal([]byte(r.EmailsJSON), &emails); err != nil {
		return nil, err
	}
	u.Emails = dropEmptyEmails(emails)

	var groups []resource.GroupRef
	if err := json.Unmarshal([]byte(r.GroupsJSON), &groups); err != nil {
		return nil, err
	}
	u.Groups = dropEmptyGroupRefs(groups)

	return u, nil
}

// dropEmptyEmails filters out decoded entries with an empty value
// (spec.md §4.6: "elements with null keys are filtered out after
// decoding"); a user with no emails already aggregates to '[]'.
func dropEmptyEmails(in []resource.Email) []resource.Email {
	out := make([]resource.Email, 0, len(in))
	for _, e := range in {
		if e.Value == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func dropEmptyGroupRefs(in []resource.GroupRef) []resource.GroupRef {
	out := make([]resource.GroupRef, 0, len(in))
	for _, g := range in {
		if g.Value == "" {
			continue
		}
		out = append(out, g)
	}
	return out
}

func dropEmptyMemberRefs(in []resource.MemberRef) []resource.MemberRef {
	out := make([]resource.MemberRef, 0, len(in))
	for _, m := range in {
		if m.Value == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// groupRow is the scan target for a projected group read.
type groupRow struct {
	ID            string `db:"id"`
	DisplayName   string `db:"display_name"`
	SchemasJSON   string `db:"schemas"`
	MembersJSON   string `db:"members_json"`
	Total         int    `db:"total"`
}

func (r groupRow) toResource() (*resource.Group, error) {
	g := &resource.Group{ID: r.ID, DisplayName: r.DisplayName}
	if err := json.Unmarshal([]byte(r.SchemasJSON), &g.Schemas); err != nil {
		return nil, err
	}
	var members []resource.MemberRef
	if err := json.Unmarshal([]byte(r.MembersJSON), &members); err != nil {
		return nil, err
	}
	g.Members = dropEmptyMemberRefs(members)
	return g, nil
}

func marshalOrNull(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func ciKey(s string) string {
	return strings.ToLower(s)
}
