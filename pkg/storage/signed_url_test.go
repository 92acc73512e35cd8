package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("exp-1", "exports/transactions.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	id, path, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", id)
	assert.Equal(t, "exports/transactions.csv", path)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("exp-1", "transactions.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "transactions.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other-secret", time.Hour)
	_, _, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = signer.Parse("exp-1.123.abc")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = signer.Generate("exp.1", "x.csv")
	assert.Error(t, err)
}
