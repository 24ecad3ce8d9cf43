package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityEmail(t *testing.T) {
	tests := []struct {
		name   string
		claims []Claim
		want   string
	}{
		{
			name: "canonical email claim wins",
			claims: []Claim{
				{Type: "urn:github:primary_email", Value: "fallback@x.com"},
				{Type: "email", Value: "a@x.com"},
			},
			want: "a@x.com",
		},
		{
			name: "case-insensitive email name",
			claims: []Claim{
				{Type: "sub", Value: "123"},
				{Type: "Email", Value: "b@x.com"},
			},
			want: "b@x.com",
		},
		{
			name: "substring match covers nonstandard claim types",
			claims: []Claim{
				{Type: "sub", Value: "123"},
				{Type: "urn:github:primary_email", Value: "c@x.com"},
			},
			want: "c@x.com",
		},
		{
			name: "empty values are skipped",
			claims: []Claim{
				{Type: "email", Value: ""},
				{Type: "preferred_email", Value: "d@x.com"},
			},
			want: "d@x.com",
		},
		{
			name: "no candidate is not an error",
			claims: []Claim{
				{Type: "sub", Value: "123"},
				{Type: "name", Value: "Someone"},
			},
			want: "",
		},
		{
			name:   "no claims at all",
			claims: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := Identity{Provider: "github", ProviderKey: "123", Claims: tt.claims}
			assert.Equal(t, tt.want, identity.Email())
		})
	}
}

func TestIdentityName(t *testing.T) {
	identity := Identity{Claims: []Claim{
		{Type: "sub", Value: "42"},
		{Type: "name", Value: "Ada"},
	}}
	assert.Equal(t, "Ada", identity.Name())

	empty := Identity{Claims: []Claim{{Type: "sub", Value: "42"}}}
	assert.Equal(t, "", empty.Name())
}
