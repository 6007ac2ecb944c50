package transaction

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/qbridge/crypto"
)

func testKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "CHAT", Chat.String())
	assert.Equal(t, "JOIN_GROUP", JoinGroup.String())
	assert.Equal(t, "TYPE_99", Type(99).String())
}

func TestSign_LayoutAndSignature(t *testing.T) {
	kp := testKeyPair(t)
	recipient := testKeyPair(t).Address()
	codec := NewCodec()

	signed, err := codec.Sign(context.Background(), Header{Timestamp: 1700000000000, Fee: 1000000},
		PaymentParams{Recipient: recipient, Amount: 5 * AmountScale}, kp)
	require.NoError(t, err)

	assert.Equal(t, Payment, signed.Type)
	assert.Equal(t, int32(Payment), int32(binary.BigEndian.Uint32(signed.Bytes[:4])))
	assert.Equal(t, int64(1700000000000), int64(binary.BigEndian.Uint64(signed.Bytes[4:12])))
	assert.True(t, Verify(signed.Bytes, kp.Public))

	decoded, err := base58.Decode(signed.Base58())
	require.NoError(t, err)
	assert.Equal(t, signed.Bytes, decoded)

	other := testKeyPair(t)
	assert.False(t, Verify(signed.Bytes, other.Public))
}

func TestSign_RejectsBadParams(t *testing.T) {
	kp := testKeyPair(t)
	codec := NewCodec()
	ctx := context.Background()

	_, err := codec.Sign(ctx, Header{}, PaymentParams{Recipient: "Qnope", Amount: 1}, kp)
	assert.Error(t, err)

	_, err = codec.Sign(ctx, Header{}, PaymentParams{Recipient: kp.Address(), Amount: 0}, kp)
	assert.Error(t, err)

	_, err = codec.Sign(ctx, Header{}, CreatePollParams{Owner: kp.Address(), PollName: "p"}, kp)
	assert.Error(t, err)

	_, err = codec.Sign(ctx, Header{}, GroupParams{Kind: Payment, GroupID: 1}, kp)
	assert.Error(t, err)

	_, err = codec.Sign(ctx, Header{Reference: "short"}, GroupParams{Kind: JoinGroup, GroupID: 1}, kp)
	assert.Error(t, err)
}

func TestSign_ChatMinesNonce(t *testing.T) {
	kp := testKeyPair(t)
	codec := NewCodec()
	h := Header{Timestamp: 1700000000000}

	signed, err := codec.Sign(context.Background(), h, ChatParams{Data: []byte("hello"), IsText: true}, kp)
	require.NoError(t, err)
	require.True(t, Verify(signed.Bytes, kp.Public))

	// the nonce sits right after the 112-byte header
	nonce := int32(binary.BigEndian.Uint32(signed.Bytes[112:116]))

	ref := base58.Encode(signed.Bytes[16:80])
	h.Reference = ref
	zeroed, err := codec.Unsigned(h, ChatParams{Data: []byte("hello"), IsText: true}, kp.Public)
	require.NoError(t, err)
	assert.True(t, CheckNonce(zeroed, nonce, DefaultChatDifficulty))
}

func TestComputeNonce_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ComputeNonce(ctx, []byte("tx"), 30)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := ComputeNonce(ctx, []byte("tx"), 4)
	require.NoError(t, err)
	assert.True(t, CheckNonce([]byte("tx"), n, 4))
	assert.True(t, CheckNonce([]byte("tx"), 12345, 0))
}

func TestSignRaw(t *testing.T) {
	kp := testKeyPair(t)
	codec := NewCodec()

	unsigned, err := codec.Unsigned(Header{Fee: 100}, GroupParams{Kind: JoinGroup, GroupID: 4}, kp.Public)
	require.NoError(t, err)

	signed58, err := codec.SignRaw(base58.Encode(unsigned), kp)
	require.NoError(t, err)
	signed, err := base58.Decode(signed58)
	require.NoError(t, err)
	assert.True(t, Verify(signed, kp.Public))

	_, err = codec.SignRaw("abc", kp)
	assert.Error(t, err)
	_, err = codec.SignRaw("0OIl", kp)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1", want: AmountScale},
		{in: "0.00000001", want: 1},
		{in: "12.5", want: 1250000000},
		{in: ".5", want: 50000000},
		{in: "1.123456789", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := ParseJSONAmount(json.RawMessage(`0.25`))
	require.NoError(t, err)
	assert.Equal(t, int64(25000000), got)
	got, err = ParseJSONAmount(json.RawMessage(`"3"`))
	require.NoError(t, err)
	assert.Equal(t, int64(300000000), got)

	assert.Equal(t, "1.50000000", FormatAmount(150000000))
}
