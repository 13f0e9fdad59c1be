package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "livecheck/internal/jwt_token"
)

func TestTokenCommand(t *testing.T) {
	userID := uuid.New()
	var stdout bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"token", "--user", userID.String(), "--signing-key", "k", "--issuer", "i", "--audience", "a"})

	require.NoError(t, root.Execute())

	claims, err := jwttoken.NewJWTService("k", "i", "a").ValidateToken(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestTokenCommand_InvalidUser(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"token", "--user", "bob"})
	assert.Error(t, root.Execute())
}
