package sso

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(now time.Time) *Codec {
	c := NewCodec("storefront-secret")
	c.now = func() time.Time { return now }
	return c
}

func TestVerify_RoundTrip(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	c := newTestCodec(now)

	tok := c.Sign(7_001_234_567, now.Add(-time.Hour))

	id, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7_001_234_567), id)
}

func TestVerify_ExpiredWithValidSignature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	c := newTestCodec(now)

	tok := c.Sign(42, now.Add(-36001*time.Second))

	_, err := c.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, "Token expirado", err.Error())
}

func TestVerify_AtMaxAgeBoundary(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	c := newTestCodec(now)

	tok := c.Sign(42, now.Add(-36000*time.Second))

	_, err := c.Verify(tok)
	require.NoError(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	c := newTestCodec(now)
	good := c.Sign(42, now)

	tests := []struct {
		name string
		tok  Token
		want error
	}{
		{
			name: "missing sig",
			tok:  Token{Enc: good.Enc, T: good.T},
			want: ErrMissingParams,
		},
		{
			name: "non numeric t",
			tok:  Token{Enc: good.Enc, T: "abc", Sig: good.Sig},
			want: ErrMalformed,
		},
		{
			name: "tampered enc",
			tok:  Token{Enc: good.Enc + "1", T: good.T, Sig: good.Sig},
			want: ErrInvalidSignature,
		},
		{
			name: "other secret",
			tok:  NewCodec("other").Sign(42, now),
			want: ErrInvalidSignature,
		},
		{
			name: "issued in the future",
			tok:  c.Sign(42, now.Add(10*time.Minute)),
			want: ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Verify(tt.tok)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
