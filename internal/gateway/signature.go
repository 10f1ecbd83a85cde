package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an x-signature header against body. The header is
// either the bare hex digest or the "ts=<unix>,v1=<hex>" form.
func VerifySignature(body []byte, header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}

	got := strings.TrimSpace(header)
	if strings.Contains(got, "=") {
		got = ""
		for _, part := range strings.Split(header, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && k == "v1" {
				got = v
			}
		}
	}

	gotBytes, err := hex.DecodeString(got)
	if err != nil || len(gotBytes) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(gotBytes, mac.Sum(nil))
}
