package tenantauth

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseRole("  MANAGER ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, got)

	for _, bad := range []string{"", "owner", "superadmin", "unknown"} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrInvalidRole, bad)
	}
}

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role   Role
		manage bool
		view   bool
	}{
		{RoleAdmin, true, true},
		{RoleManager, false, true},
		{RoleReviewer, false, false},
		{RoleValuer, false, false},
		{roleUnknown, false, false},
		{Role(99), false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.manage, c.role.CanManageUsers(), c.role.String())
		assert.Equal(t, c.view, c.role.CanViewUsers(), c.role.String())
	}
	assert.False(t, roleUnknown.Valid())
	assert.False(t, Role(99).Valid())
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleReviewer})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"reviewer"}`, string(data))

	var in struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"Valuer"}`), &in))
	assert.Equal(t, RoleValuer, in.Role)

	err = json.Unmarshal([]byte(`{"role":"root"}`), &in)
	assert.True(t, errors.Is(err, ErrInvalidRole))

	_, err = json.Marshal(roleUnknown)
	assert.Error(t, err)
}
