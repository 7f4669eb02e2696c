package cohost

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"

	"github.com/blacktop/cohostpost/internal/logutil"
	"golang.org/x/crypto/pbkdf2"
)

// KeyDerivation describes a PBKDF2 configuration.
type KeyDerivation struct {
	Iterations int
	KeyLength  int
	Hash       func() hash.Hash
}

// ClientHashKDF is the derivation the login endpoint expects.
var ClientHashKDF = KeyDerivation{
	Iterations: 200_000,
	KeyLength:  128,
	Hash:       sha512.New384,
}

// Derive runs PBKDF2 over the UTF-8 bytes of password.
func (k KeyDerivation) Derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, k.Iterations, k.KeyLength, k.Hash)
}

var saltReplacer = strings.NewReplacer("-", "A", "_", "A")

// NormalizeSalt maps both URL-safe base64 characters to 'A'. The mapping is
// lossy but it is what the server does when it computes its own hash.
func NormalizeSalt(salt string) string {
	return saltReplacer.Replace(salt)
}

// DecodeSalt normalizes salt and decodes it as standard base64 with
// optional padding. A dangling final character is ignored.
func DecodeSalt(salt string) ([]byte, error) {
	s := strings.TrimRight(NormalizeSalt(salt), "=")
	if len(s)%4 == 1 {
		s = s[:len(s)-1]
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return b, nil
}

// ClientHash derives the base64 login hash for password and the salt string
// returned by login.getSalt.
func ClientHash(password, salt string) (string, error) {
	saltBytes, err := DecodeSalt(salt)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ClientHashKDF.Derive(password, saltBytes)), nil
}

type loginInput struct {
	Email      string `json:"email"`
	ClientHash string `json:"clientHash,omitempty"`
}

// Authenticate logs in with email and password and returns the new session.
// A response missing an expected field yields a *LoginError; transport
// failures are returned as-is.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	logutil.Debugf("requesting salt: email=%s", email)
	resp, err := c.api.Query(ctx, "login.getSalt", loginInput{Email: email}, "")
	if err != nil {
		return nil, err
	}

	var salt struct {
		Salt string `json:"salt"`
	}
	if err := resp.Decode(&salt); err != nil || salt.Salt == "" {
		return nil, loginFailed("getSalt", resp.String())
	}

	clientHash, err := ClientHash(password, salt.Salt)
	if err != nil {
		return nil, loginFailed("getSalt", err.Error())
	}

	logutil.Debugf("submitting client hash: email=%s", email)
	resp, err = c.api.Mutate(ctx, "login.login", loginInput{Email: email, ClientHash: clientHash}, "")
	if err != nil {
		return nil, err
	}

	var login struct {
		UserID int64 `json:"userId"`
	}
	if err := resp.Decode(&login); err != nil || login.UserID == 0 {
		return nil, loginFailed("login", resp.String())
	}

	cookie := cookieHeader(resp.Header)
	if cookie == "" {
		return nil, loginFailed("login", "response carried no session cookie")
	}

	logutil.Infof("logged in as userId %d (%s)", login.UserID, email)
	return NewSession(cookie, login.UserID), nil
}

func loginFailed(stage, diagnostic string) error {
	logutil.Error("failed to log in", "stage", stage, "response", diagnostic)
	return &LoginError{Stage: stage, Diagnostic: diagnostic}
}
