package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// User represents the authenticated account.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// Email is the user's login address.
	Email string `json:"email"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Avatar is an optional profile picture URL.
	Avatar string `json:"avatar,omitempty"`
}

// Profile holds the extended profile fields. The backend may add fields the
// client does not know about, so it is kept as a loose mapping.
type Profile map[string]any

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the field as a string, or "" if missing or not a string.
func (p Profile) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// ProfilePatch lists the profile fields the client is allowed to change.
// Nil fields are not sent.
type ProfilePatch struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Currency      *string `json:"currency,omitempty"`
	MonthlyBudget *Amount `json:"monthlyBudget,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
}

// profileFields is the allow-list used by ProfilePatchFromMap.
var profileFields = []string{"avatar", "currency", "email", "monthlyBudget", "name"}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Currency == nil &&
		p.MonthlyBudget == nil && p.Avatar == nil
}

// Validate checks the present fields.
func (p ProfilePatch) Validate() error {
	if p.IsEmpty() {
		return invalid("", "patch has no fields")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name", "name cannot be empty")
	}
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return invalid("email", "%q is not an email address", *p.Email)
	}
	if p.Currency != nil && len(*p.Currency) != 3 {
		return invalid("currency", "currency must be a 3-letter code")
	}
	if p.MonthlyBudget != nil && p.MonthlyBudget.IsNegative() {
		return invalid("monthlyBudget", "budget cannot be negative")
	}
	return nil
}

// ProfilePatchFromMap builds a patch from loosely typed input such as a
// decoded form. Keys outside the allow-list are rejected.
func ProfilePatchFromMap(fields map[string]any) (ProfilePatch, error) {
	var unknown []string
	for k := range fields {
		if !allowedProfileField(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ProfilePatch{}, invalid("", "unsupported profile fields: %s", strings.Join(unknown, ", "))
	}

	// Round-trip through JSON so numbers and strings decode the same way they
	// would from a request body.
	data, err := json.Marshal(fields)
	if err != nil {
		return ProfilePatch{}, fmt.Errorf("failed to encode profile fields: %w", err)
	}
	var patch ProfilePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return ProfilePatch{}, invalid("", "invalid profile field value: %v", err)
	}
	return patch, patch.Validate()
}

func allowedProfileField(key string) bool {
	i := sort.SearchStrings(profileFields, key)
	return i < len(profileFields) && profileFields[i] == key
}

// AuthResponse is the payload of /auth/login and /auth/register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
