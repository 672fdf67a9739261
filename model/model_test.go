package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("superuser").Valid())

	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
}

func TestPermissionCapabilities(t *testing.T) {
	t.Parallel()

	cases := []struct {
		perm     Permission
		view     bool
		download bool
	}{
		{PermissionView, true, false},
		{PermissionDownload, false, true},
		{PermissionViewDownload, true, true},
	}

	for _, tc := range cases {
		assert.True(t, tc.perm.Valid(), string(tc.perm))
		assert.Equal(t, tc.view, tc.perm.AllowsView(), string(tc.perm))
		assert.Equal(t, tc.download, tc.perm.AllowsDownload(), string(tc.perm))
	}

	assert.False(t, Permission("edit").Valid())
}

func TestActionValid(t *testing.T) {
	t.Parallel()

	for _, a := range []Action{
		ActionUpload, ActionDownload, ActionShare, ActionRevoke, ActionDelete,
		ActionLogin, ActionFailedLogin, ActionLock, ActionUnlock,
	} {
		assert.True(t, a.Valid(), string(a))
	}

	assert.False(t, Action("").Valid())
	assert.False(t, Action("teleport").Valid())
}
