package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCataloguesValidate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterCore(r))
	require.NoError(t, RegisterProtocols(r))
	require.NoError(t, r.Validate())

	// Every driver permission must chain back to connection.view.
	assert.Contains(t, r.Requires("protocol:ssh.port_forward"), "connection.launch")
	assert.Contains(t, r.Requires("protocol:ssh.port_forward"), "connection.view")

	assert.NotEmpty(t, r.ByModule("core"))
	assert.NotEmpty(t, r.ByModule("protocol:ssh"))
}

func TestBuiltinCataloguesCannotRegisterTwice(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterCore(r))
	require.ErrorIs(t, RegisterCore(r), ErrDuplicateID)
}
