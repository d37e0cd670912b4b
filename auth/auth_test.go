package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueVerify(t *testing.T) {
	iss, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	ver, err := NewVerifier(testSecret)
	require.NoError(t, err)

	tok, err := iss.Issue("17")
	require.NoError(t, err)

	id, err := ver.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "17", id.UserID)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	good, err := iss.Issue("1")
	require.NoError(t, err)

	other, err := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("1")
	require.NoError(t, err)

	expiredIss, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	expiredIss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIss.Issue("1")
	require.NoError(t, err)

	ver, err := NewVerifier(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ver.Verify(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestShortSecret(t *testing.T) {
	_, err := NewVerifier([]byte("change-me"))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, err = NewIssuer([]byte("change-me"), time.Hour)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	for _, h := range []string{"", "Basic xyz", "Bearer ", "bearer abc"} {
		_, err := BearerToken(h)
		assert.True(t, errors.Is(err, ErrUnauthorized), "header %q", h)
	}
}
