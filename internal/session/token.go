package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// newSessionID は暗号学的に安全なランダムIDを生成します。
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// signToken はセッションIDに署名を付けたクッキー値を作ります。
// 形式は "<id>.<hmac-sha256(id)>" です。
func signToken(id string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

// parseToken はクッキー値を検証し、セッションIDを取り出します。
// 形式不正や署名不一致の場合は ok=false を返します。
func parseToken(token string, secret []byte) (string, bool) {
	id, sig, found := strings.Cut(token, ".")
	if !found || id == "" {
		return "", false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return "", false
	}
	return id, true
}
