package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsWeakSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty", secret: ""},
		{name: "short", secret: "too-short"},
		{name: "31 bytes", secret: strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.secret)
			assert.ErrorIs(t, err, ErrWeakSecret)
		})
	}
}

func TestSignParseRoundtrip(t *testing.T) {
	codec := newTestCodec(t)

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := Claims{
		Subject:   "alice",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
		Issuer:    "redditclone",
	}

	signed, err := codec.Sign(want)
	require.NoError(t, err)

	got, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseMalformed(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "two segments", token: "aGVhZGVy.cGF5bG9hZA"},
		{name: "binary", token: "\x00\x01\x02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Parse(tt.token)
			require.Error(t, err)
			assert.Equal(t, KindMalformed, KindOf(err))
		})
	}
}

func TestParseBadSignature(t *testing.T) {
	codec := newTestCodec(t)

	issued := time.Now().UTC()
	signed, err := codec.Sign(Claims{
		Subject:   "alice",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
		Issuer:    "redditclone",
	})
	require.NoError(t, err)

	t.Run("different secret", func(t *testing.T) {
		other, err := NewCodec(strings.Repeat("y", 32))
		require.NoError(t, err)

		_, err = other.Parse(signed)
		require.Error(t, err)
		assert.Equal(t, KindBadSignature, KindOf(err))
	})

	t.Run("tampered body", func(t *testing.T) {
		_, err := codec.Parse(tamperSubject(t, signed, "mallory"))
		require.Error(t, err)
		assert.Equal(t, KindBadSignature, KindOf(err))
	})

	t.Run("flipped signature byte", func(t *testing.T) {
		parts := strings.Split(signed, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		parts[2] = string(sig)

		_, err := codec.Parse(strings.Join(parts, "."))
		require.Error(t, err)
		assert.Equal(t, KindBadSignature, KindOf(err))
	})
}

// tamperSubject rewrites the payload segment with a different subject while
// keeping the original signature.
func tamperSubject(t *testing.T, signed, subject string) string {
	t.Helper()

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	body["sub"] = subject

	forged, err := json.Marshal(body)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(forged)
	return strings.Join(parts, ".")
}
