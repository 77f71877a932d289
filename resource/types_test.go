package resource

import (
	"encoding/json"
	"testing"
)

func TestBooleanUnmarshalsStringForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"json true", `true`, true},
		{"json false", `false`, false},
		{"string True", `"True"`, true},
		{"string false", `"false"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Boolean
			if err := json.Unmarshal([]byte(tt.in), &b); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if bool(b) != tt.want {
				t.Errorf("got %v, want %v", bool(b), tt.want)
			}
		})
	}
}

func TestUserMarshalFlattensExtensions(t *testing.T) {
	u := User{
		Schemas:  []string{SchemaUser},
		UserName: "jdoe",
		Extensions: map[string]any{
			"urn:ietf:params:scim:schemas:extension:enterprise:2.0:User": map[string]any{
				"employeeNumber": "1234",
			},
		},
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	ext, ok := raw["urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"].(map[string]any)
	if !ok {
		t.Fatalf("extension not present in serialized user: %s", data)
	}
	if ext["employeeNumber"] != "1234" {
		t.Errorf("got %v", ext["employeeNumber"])
	}
}

func TestUserUnmarshalRoundTripsExtensions(t *testing.T) {
	in := `{
		"schemas": ["urn:ietf:params:scim:schemas:core:2.0:User"],
		"userName": "jdoe",
		"urn:ietf:params:scim:schemas:extension:enterprise:2.0:User": {"employeeNumber": "1234"}
	}`

	var u User
	if err := json.Unmarshal([]byte(in), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.UserName != "jdoe" {
		t.Fatalf("userName not decoded: %+v", u)
	}
	ext, ok := u.Extensions["urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"].(map[string]any)
	if !ok {
		t.Fatalf("extension not captured: %+v", u.Extensions)
	}
	if ext["employeeNumber"] != "1234" {
		t.Errorf("got %v", ext["employeeNumber"])
	}
}

func TestSanitizeUserStripsPassword(t *testing.T) {
	u := &User{UserName: "jdoe", Password: "hunter2"}
	out := SanitizeUser(u)
	if out.Password != "" {
		t.Errorf("password leaked: %q", out.Password)
	}
	if u.Password != "hunter2" {
		t.Errorf("SanitizeUser must not mutate its input")
	}
}
