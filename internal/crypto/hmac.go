// Package crypto signs private exchange REST requests.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// KrakenAuth holds the credentials for Kraken's private REST endpoints.
type KrakenAuth struct {
	Key    string // API key
	Secret string // API secret, base64-encoded as issued by Kraken

	mu        sync.Mutex
	lastNonce int64
}

// Nonce returns a strictly increasing nonce derived from the wall clock in
// milliseconds. Kraken rejects a nonce that is not larger than the last one
// seen for the key.
func (k *KrakenAuth) Nonce() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := time.Now().UnixMilli()
	if n <= k.lastNonce {
		n = k.lastNonce + 1
	}
	k.lastNonce = n
	return strconv.FormatInt(n, 10)
}

// Sign returns the API-Sign header value for a request to urlPath whose
// url-encoded body is postData and carries nonce:
//
//	base64(HMAC-SHA512(base64decode(secret), urlPath + SHA256(nonce + postData)))
func (k *KrakenAuth) Sign(urlPath, nonce, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.Secret)
	if err != nil {
		return "", fmt.Errorf("crypto: decode kraken secret: %w", err)
	}

	sha := sha256.Sum256([]byte(nonce + postData))
	msg := make([]byte, 0, len(urlPath)+len(sha))
	msg = append(msg, urlPath...)
	msg = append(msg, sha[:]...)

	return hmacSHA512Base64(secret, msg), nil
}

// Headers returns the authentication headers for a signed request.
func (k *KrakenAuth) Headers(urlPath, nonce, postData string) (map[string]string, error) {
	sig, err := k.Sign(urlPath, nonce, postData)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"API-Key":  k.Key,
		"API-Sign": sig,
	}, nil
}

func hmacSHA512Base64(key, message []byte) string {
	mac := hmac.New(sha512.New, key)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (k *KrakenAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("KrakenAuth{key=%s, secret=%s}", redact(k.Key), redact(k.Secret))
}
