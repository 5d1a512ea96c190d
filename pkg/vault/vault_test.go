package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndSign_RoundTrip(t *testing.T) {
	v := New(NewInMemoryBackend())

	gen, err := v.Generate(RoleApprover, "correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, gen.Address)
	assert.NotEmpty(t, gen.Mnemonic)

	res, err := v.Sign(RoleApprover, []byte("hello"), "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, gen.Address, res.SignerAddress)

	ok, err := VerifySignature(res.SignerAddress, []byte("hello"), res.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSign_WrongPassphraseFails(t *testing.T) {
	v := New(NewInMemoryBackend())
	_, err := v.Generate(RoleRelease, "right-passphrase")
	require.NoError(t, err)

	_, err = v.Sign(RoleRelease, []byte("msg"), "wrong-passphrase")
	require.ErrorIs(t, err, ErrInvalidPassphrase)
}

func TestSign_NoKeyForRole(t *testing.T) {
	v := New(NewInMemoryBackend())
	_, err := v.Sign(RoleReceipt, []byte("msg"), "whatever")
	require.ErrorIs(t, err, ErrNoKeyForRole)
}

func TestSignHash_SignsStringRepresentation(t *testing.T) {
	v := New(NewInMemoryBackend())
	gen, err := v.Generate(RoleRelease, "pw")
	require.NoError(t, err)

	res, err := v.SignHash(RoleRelease, "0xabc123", "pw")
	require.NoError(t, err)

	ok, err := VerifySignature(gen.Address, []byte("0xabc123"), res.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete_RemovesKey(t *testing.T) {
	v := New(NewInMemoryBackend())
	gen, err := v.Generate(RoleApprover, "pw")
	require.NoError(t, err)

	require.NoError(t, v.Delete(RoleApprover, gen.Address))
	_, err = v.Sign(RoleApprover, []byte("x"), "pw")
	require.ErrorIs(t, err, ErrNoKeyForRole)
}

func TestDerive_IsDeterministicAndContextScoped(t *testing.T) {
	v := New(NewInMemoryBackend())
	_, err := v.Generate(RoleReceipt, "pw")
	require.NoError(t, err)

	a, err := v.Derive(RoleReceipt, "pw", "session-1")
	require.NoError(t, err)
	b, err := v.Derive(RoleReceipt, "pw", "session-1")
	require.NoError(t, err)
	c, err := v.Derive(RoleReceipt, "pw", "session-2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	v := New(backend)
	gen, err := v.Generate(RoleReceipt, "pw")
	require.NoError(t, err)

	res, err := v.Sign(RoleReceipt, []byte("data"), "pw")
	require.NoError(t, err)
	assert.Equal(t, gen.Address, res.SignerAddress)
}
