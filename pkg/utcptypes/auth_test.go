package utcptypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuth_EncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Auth{
		&APIKeyAuth{Key: "secret", VarName: "X-API-Key", Location: APIKeyLocationHeader},
		&BasicAuth{Username: "u", Password: "p"},
		&OAuth2Auth{TokenURL: "https://auth.example.com/token", ClientID: "id", ClientSecret: "sec"},
	}
	for _, a := range cases {
		raw, err := EncodeAuth(a)
		require.NoError(t, err)
		decoded, err := DecodeAuth(raw)
		require.NoError(t, err)
		require.Equal(t, a, decoded)
	}
}

func TestAuth_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	a := &APIKeyAuth{Key: "secret", VarName: "X-API-Key", Location: APIKeyLocationHeader}
	cp := a.Clone().(*APIKeyAuth)
	cp.Key = "changed"
	require.Equal(t, "secret", a.Key)
}

func TestDecodeAuth_NilOnEmptyOrNull(t *testing.T) {
	t.Parallel()

	a, err := DecodeAuth(nil)
	require.NoError(t, err)
	require.Nil(t, a)

	a, err = DecodeAuth([]byte("null"))
	require.NoError(t, err)
	require.Nil(t, a)
}

func TestDecodeAuth_UnknownKindFails(t *testing.T) {
	t.Parallel()

	_, err := DecodeAuth([]byte(`{"auth_type":"bogus"}`))
	require.Error(t, err)
}
