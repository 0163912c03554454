package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// authSigner issues and verifies channel access tokens. A token is bound
// to the socket id it was issued for, so a captured token is useless on
// any other connection.
type authSigner struct {
	secret []byte
}

func newAuthSigner(secret string) *authSigner {
	return &authSigner{secret: []byte(secret)}
}

// sign returns the hex HMAC-SHA256 of "<socket_id>:<channel>".
func (a *authSigner) sign(socketID, channel string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(socketID + ":" + channel))
	return hex.EncodeToString(mac.Sum(nil))
}

// token returns "<socket_id>:<signature>", the wire form handed out by
// the auth endpoint and presented back in pusher:subscribe frames.
func (a *authSigner) token(socketID, channel string) string {
	return socketID + ":" + a.sign(socketID, channel)
}

// verify reports whether token authorizes socketID for channel. The
// comparison over the hex signature bytes is constant time. Any parse
// failure or mismatch returns false.
func (a *authSigner) verify(token, socketID, channel string) bool {
	id, sig, ok := strings.Cut(token, ":")
	if !ok || id != socketID {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(a.sign(socketID, channel)))
}
