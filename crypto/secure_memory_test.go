package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWipeKeyPairClearsSeedOnly(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, kp.Private)
	pub := kp.Public

	require.NoError(t, WipeKeyPair(kp))
	assert.Equal(t, [32]byte{}, kp.Private)
	assert.Equal(t, pub, kp.Public, "public key stays usable after wiping")

	assert.Error(t, WipeKeyPair(nil))
}

func TestWipedKeyPairNoLongerDecodes(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	seed58 := kp.PrivateKeyBase58()
	require.NoError(t, WipeKeyPair(kp))

	again, err := FromBase58(seed58)
	require.NoError(t, err)
	assert.NotEqual(t, again.Private, kp.Private)
}

func TestSecureWipe(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{name: "nil slice", input: nil, wantErr: true},
		{name: "empty slice", input: []byte{}},
		{name: "single byte", input: []byte{0xff}},
		{name: "message key", input: make([]byte, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.input {
				tt.input[i] = byte(i + 1)
			}
			err := SecureWipe(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for i, b := range tt.input {
				assert.Zero(t, b, "byte %d", i)
			}
		})
	}
}

func TestZeroBytesIgnoresNil(t *testing.T) {
	assert.NotPanics(t, func() { ZeroBytes(nil) })
	buf := []byte{1, 2, 3}
	ZeroBytes(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
}
