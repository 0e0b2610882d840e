package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	t.Parallel()

	require.True(t, RoleDonor.Valid())
	require.True(t, RoleManager.Valid())
	require.True(t, RoleAdmin.Valid())
	require.False(t, Role("GUEST").Valid())
	require.False(t, Role("").Valid())
}

func TestUser_LoginIdentifier(t *testing.T) {
	t.Parallel()

	u := &User{Email: "ivan@example.com", Phone: "+79001234567"}
	require.Equal(t, "ivan@example.com", u.LoginIdentifier())

	u = &User{Phone: "+79001234567"}
	require.Equal(t, "+79001234567", u.LoginIdentifier())
}

func TestRefreshToken_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Minute)}

	require.False(t, tok.Expired(now))
	require.True(t, tok.Expired(now.Add(2*time.Minute)))
}
