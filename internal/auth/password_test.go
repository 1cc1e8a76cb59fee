package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword_HashAndVerify(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("hunter2")
	req.NoError(err)
	req.NoError(VerifyPassword(hash, "hunter2"))
	req.ErrorIs(VerifyPassword(hash, "wrong"), ErrHashMismatch)
}

func TestPassword_SaltedHashesDiffer(t *testing.T) {
	req := require.New(t)

	h1, err := HashPassword("hunter2")
	req.NoError(err)
	h2, err := HashPassword("hunter2")
	req.NoError(err)
	req.NotEqual(h1, h2)
}

func TestPassword_RejectsMalformedHash(t *testing.T) {
	req := require.New(t)
	req.ErrorIs(VerifyPassword("bogus", "hunter2"), ErrHashMismatch)
	req.ErrorIs(VerifyPassword("bcrypt$abc$def", "hunter2"), ErrHashMismatch)
}
