package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
)

func computeHMAC(h func() hash.Hash, secret string, payload []byte) []byte {
	mac := hmac.New(h, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// verifyHexHMAC256 checks a hex-encoded HMAC-SHA256 signature in constant time
func verifyHexHMAC256(secret, signature string, payload []byte) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, computeHMAC(sha256.New, secret, payload))
}

// verifyBase64HMAC256 checks a base64-encoded HMAC-SHA256 signature in constant time
func verifyBase64HMAC256(secret, signature string, payload []byte) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, computeHMAC(sha256.New, secret, payload))
}

// verifyBase64HMAC512 checks a base64-encoded HMAC-SHA512 signature in constant time
func verifyBase64HMAC512(secret, signature string, payload []byte) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, computeHMAC(sha512.New, secret, payload))
}

func signHexHMAC256(secret string, payload []byte) string {
	return hex.EncodeToString(computeHMAC(sha256.New, secret, payload))
}

func signBase64HMAC256(secret string, payload []byte) string {
	return base64.StdEncoding.EncodeToString(computeHMAC(sha256.New, secret, payload))
}

func signBase64HMAC512(secret string, payload []byte) string {
	return base64.StdEncoding.EncodeToString(computeHMAC(sha512.New, secret, payload))
}
