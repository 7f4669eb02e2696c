package cohost

import (
	stdpbkdf2 "crypto/pbkdf2"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blacktop/cohostpost/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSalt(t *testing.T) {
	tests := []struct {
		name string
		salt string
		want []byte
	}{
		{"url-safe chars both map to A", "AA-_AA", []byte{0, 0, 0, 0}},
		{"underscore", "_w", []byte{0x03}},
		{"dash", "-w==", []byte{0x03}},
		{"dangling char dropped", "AAAAA", []byte{0, 0, 0}},
		{"no padding needed", "AAAA", []byte{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSalt(tt.salt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSaltMatchesStandardWithSameCharacter(t *testing.T) {
	fixtures := []struct {
		urlSafe  string
		standard string
	}{
		{"AA-_AA", "AAAAAA"},
		{"q-_8Zw==", "qAA8Zw=="},
		{"Zm9v-mFy_mJheg", "Zm9vAmFyAmJheg"},
	}
	for _, f := range fixtures {
		t.Run(f.urlSafe, func(t *testing.T) {
			got, err := DecodeSalt(f.urlSafe)
			require.NoError(t, err)

			want, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(f.standard, "="))
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, f.standard, NormalizeSalt(f.urlSafe))
		})
	}

	// the normalization is lossy: the proper URL-safe decoding differs
	lossy, err := DecodeSalt("q-_8Zw==")
	require.NoError(t, err)
	proper, err := base64.URLEncoding.DecodeString("q-_8Zw==")
	require.NoError(t, err)
	assert.NotEqual(t, proper, lossy)
}

func TestDecodeSaltInvalid(t *testing.T) {
	_, err := DecodeSalt("not base64!")
	assert.Error(t, err)
}

func TestKeyDerivationRFC6070(t *testing.T) {
	tests := []struct {
		iterations int
		want       string
	}{
		{1, "0c60c80f961f0e71f3a9b524af6012062fe037a6"},
		{2, "ea6c014dc72d6f8ccd1ed92ace1d41f0d8de8957"},
		{4096, "4b007901b765489abead49d926f721d065a429c1"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.iterations), func(t *testing.T) {
			kdf := KeyDerivation{Iterations: tt.iterations, KeyLength: 20, Hash: sha1.New}
			assert.Equal(t, tt.want, hex.EncodeToString(kdf.Derive("password", []byte("salt"))))
		})
	}
}

func TestClientHashDeterministic(t *testing.T) {
	first, err := ClientHash("hunter2", "AA-_AA")
	require.NoError(t, err)
	second, err := ClientHash("hunter2", "AA-_AA")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 128)

	// same bytes through an independent PBKDF2 implementation
	want, err := stdpbkdf2.Key(sha512.New384, "hunter2", []byte{0, 0, 0, 0}, 200_000, 128)
	require.NoError(t, err)
	assert.Equal(t, want, raw)

	other, err := ClientHash("hunter3", "AA-_AA")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCookieHeader(t *testing.T) {
	h := http.Header{}
	h.Add("Set-Cookie", "connect.sid=s%3Aabc.def; Path=/; HttpOnly; Secure")
	h.Add("Set-Cookie", "other=1; Path=/")
	assert.Equal(t, "connect.sid=s%3Aabc.def; other=1", cookieHeader(h))
	assert.Empty(t, cookieHeader(http.Header{}))
}

func newLoginServer(t *testing.T, salt, loginBody string, setCookie bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login.getSalt", func(w http.ResponseWriter, r *http.Request) {
		assert.JSONEq(t, `{"0":{"email":"cat@example.com"}}`, r.URL.Query().Get("input"))
		if salt == "" {
			io.WriteString(w, `[{"result":{"data":{}}}]`)
			return
		}
		fmt.Fprintf(w, `[{"result":{"data":{"salt":%q}}}]`, salt)
	})
	mux.HandleFunc("/login.login", func(w http.ResponseWriter, r *http.Request) {
		if setCookie {
			http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "s%3Asession", Path: "/", HttpOnly: true})
		}
		io.WriteString(w, loginBody)
	})
	return httptest.NewServer(mux)
}

func testClient(srv *httptest.Server) *Client {
	cfg := config.Config{
		Use:       true,
		Email:     "cat@example.com",
		Password:  "hunter2",
		Handle:    "shycat",
		UserAgent: "cohostpost-test/1",
		APIURL:    srv.URL,
		UploadURL: srv.URL + "/upload",
	}
	return newClient(cfg, srv.Client())
}

func TestAuthenticate(t *testing.T) {
	srv := newLoginServer(t, "AA-_AA", `[{"result":{"data":{"userId":1234}}}]`, true)
	defer srv.Close()

	sess, err := testClient(srv).Authenticate(t.Context(), "cat@example.com", "hunter2")
	require.NoError(t, err)

	cookie, ok := sess.Cookie()
	assert.True(t, ok)
	assert.Equal(t, "connect.sid=s%3Asession", cookie)
	assert.Equal(t, int64(1234), sess.UserID())
}

func TestAuthenticateSendsDerivedHash(t *testing.T) {
	want, err := ClientHash("hunter2", "AA-_AA")
	require.NoError(t, err)

	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/login.getSalt", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"result":{"data":{"salt":"AA-_AA"}}}]`)
	})
	mux.HandleFunc("/login.login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body["0"]["clientHash"]
		assert.Equal(t, "cat@example.com", body["0"]["email"])
		http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "x"})
		io.WriteString(w, `[{"result":{"data":{"userId":1}}}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err = testClient(srv).Authenticate(t.Context(), "cat@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name      string
		salt      string
		loginBody string
		setCookie bool
		stage     string
	}{
		{"missing salt", "", `[{"result":{"data":{"userId":1}}}]`, true, "getSalt"},
		{"missing user id", "AA-_AA", `[{"result":{"data":{}}}]`, true, "login"},
		{"error payload", "AA-_AA", `[{"error":{"message":"bad password"}}]`, true, "login"},
		{"missing cookie", "AA-_AA", `[{"result":{"data":{"userId":1}}}]`, false, "login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newLoginServer(t, tt.salt, tt.loginBody, tt.setCookie)
			defer srv.Close()

			sess, err := testClient(srv).Authenticate(t.Context(), "cat@example.com", "hunter2")
			assert.Nil(t, sess)
			assert.ErrorIs(t, err, ErrLoginFailed)

			var loginErr *LoginError
			require.ErrorAs(t, err, &loginErr)
			assert.Equal(t, tt.stage, loginErr.Stage)
		})
	}
}

func TestAuthenticateTransportErrorPropagates(t *testing.T) {
	srv := newLoginServer(t, "AA-_AA", "", true)
	c := testClient(srv)
	srv.Close()

	_, err := c.Authenticate(t.Context(), "cat@example.com", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoginFailed)
}
