package crypto

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKrakenAuth_Sign(t *testing.T) {
	auth := &KrakenAuth{
		Key:    "key",
		Secret: "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg==",
	}
	nonce := "1616492376594"
	post := "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25"

	sig, err := auth.Sign("/0/private/AddOrder", nonce, post)
	require.NoError(t, err)
	assert.Equal(t, "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ==", sig)

	h, err := auth.Headers("/0/private/AddOrder", nonce, post)
	require.NoError(t, err)
	assert.Equal(t, "key", h["API-Key"])
	assert.Equal(t, sig, h["API-Sign"])
}

func TestKrakenAuth_BadSecret(t *testing.T) {
	auth := &KrakenAuth{Key: "key", Secret: "not base64!"}
	_, err := auth.Sign("/0/private/Balance", "1", "nonce=1")
	assert.Error(t, err)
}

func TestKrakenAuth_NonceIncreases(t *testing.T) {
	auth := &KrakenAuth{}
	prev := int64(0)
	for i := 0; i < 100; i++ {
		n, err := strconv.ParseInt(auth.Nonce(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestKrakenAuth_StringRedacts(t *testing.T) {
	auth := &KrakenAuth{Key: "abcdefgh", Secret: "supersecret"}
	s := auth.String()
	assert.NotContains(t, s, "efgh")
	assert.NotContains(t, s, "secret")
}
