package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// TokenTTL is how long an anti-forgery token stays valid. Long enough for a
// slow checkout session, short enough that leaked tokens age out.
const TokenTTL = 12 * time.Hour

// NewToken mints an anti-forgery token bound to an expiry: "<exp>.<sig>"
// where sig = HMAC-SHA256(secret, exp). The client echoes it with every
// verification request.
func NewToken(secret []byte, now time.Time) string {
	exp := strconv.FormatInt(now.Add(TokenTTL).Unix(), 10)
	return exp + "." + sign(secret, exp)
}

// CheckToken verifies the signature and expiry of a token minted by NewToken.
func CheckToken(secret []byte, token string, now time.Time) bool {
	exp, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil || now.Unix() > expUnix {
		return false
	}
	return hmac.Equal([]byte(sign(secret, exp)), []byte(sig))
}

func sign(secret []byte, msg string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
