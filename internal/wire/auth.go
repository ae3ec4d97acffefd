package wire

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// Authentication sub-message codes carried in the first int32 of an
// AuthenticationXXX backend message.
const (
	authOK                = 0
	authCleartextPassword = 3
	authMD5Password       = 5
	authSASL              = 10
	authSASLContinue      = 11
	authSASLFinal         = 12
)

// runAuthentication drives whichever auth flow the server requests
// (cleartext, MD5, or SASL SCRAM-SHA-256) to completion.
func (c *Connection) runAuthentication(creds Credentials) error {
	f, err := readBackendFrame(c.r)
	if err != nil {
		return errs.Network(err)
	}
	if f.Kind == backendErrorResponse {
		return errs.New(errs.KindAuthFailed, creds.User, "connect", parseErrorResponse(f.Payload))
	}
	if f.Kind != backendAuthentication {
		return errs.ProtocolViolation(fmt.Errorf("expected Authentication message, got %q", f.Kind))
	}

	r := newMsgReader(f.Payload)
	method := r.int32()
	switch method {
	case authOK:
		return nil
	case authCleartextPassword:
		return c.authCleartext(creds.Password)
	case authMD5Password:
		salt := r.take(4)
		return c.authMD5(creds.User, creds.Password, salt)
	case authSASL:
		return c.authSASLSCRAM(creds.Password, r.remaining())
	default:
		return errs.New(errs.KindAuthFailed, creds.User, "connect",
			fmt.Errorf("unsupported authentication method %d", method))
	}
}

func (c *Connection) authCleartext(password string) error {
	b := &msgBuilder{}
	b.cstring(password)
	if err := writeFrame(c.w, frontendPasswordMessage, b.buf); err != nil {
		return errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return errs.Network(err)
	}
	return c.awaitAuthOK()
}

func (c *Connection) authMD5(user, password string, salt []byte) error {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.Sum(append([]byte(innerHex), salt...))
	hashed := "md5" + hex.EncodeToString(outer[:])

	b := &msgBuilder{}
	b.cstring(hashed)
	if err := writeFrame(c.w, frontendPasswordMessage, b.buf); err != nil {
		return errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return errs.Network(err)
	}
	return c.awaitAuthOK()
}

// authSASLSCRAM implements SCRAM-SHA-256 (RFC 5802 / RFC 7677) as
// required by PostgreSQL's sasl auth. The server's mechanism list is
// ignored beyond asserting SCRAM-SHA-256 is offered.
func (c *Connection) authSASLSCRAM(password string, mechanisms []byte) error {
	mechList := strings.Split(strings.TrimRight(string(mechanisms), "\x00"), "\x00")
	found := false
	for _, m := range mechList {
		if m == "SCRAM-SHA-256" {
			found = true
		}
	}
	if !found {
		return errs.New(errs.KindAuthFailed, "", "connect", fmt.Errorf("server does not offer SCRAM-SHA-256"))
	}

	clientNonce := randomNonce()
	clientFirstBare := "n=,r=" + clientNonce
	clientFirst := "n,," + clientFirstBare

	ib := &msgBuilder{}
	ib.cstring("SCRAM-SHA-256")
	ib.int32(int32(len(clientFirst)))
	ib.bytes([]byte(clientFirst))
	if err := writeFrame(c.w, frontendPasswordMessage, ib.buf); err != nil {
		return errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return errs.Network(err)
	}

	f, err := readBackendFrame(c.r)
	if err != nil {
		return errs.Network(err)
	}
	if f.Kind == backendErrorResponse {
		return errs.New(errs.KindAuthFailed, "", "connect", parseErrorResponse(f.Payload))
	}
	if f.Kind != backendAuthentication {
		return errs.ProtocolViolation(fmt.Errorf("expected AuthenticationSASLContinue, got %q", f.Kind))
	}
	r := newMsgReader(f.Payload)
	if sub := r.int32(); sub != authSASLContinue {
		return errs.ProtocolViolation(fmt.Errorf("expected SASLContinue, got subcode %d", sub))
	}
	serverFirst := string(r.remaining())

	serverNonce, salt, iterCount, err := parseServerFirst(serverFirst)
	if err != nil {
		return errs.New(errs.KindAuthFailed, "", "connect", err)
	}
	if !strings.HasPrefix(serverNonce, clientNonce) {
		return errs.New(errs.KindAuthFailed, "", "connect", fmt.Errorf("server nonce does not extend client nonce"))
	}

	saltedPassword := pbkdf2.Key([]byte(password), salt, iterCount, sha256.Size, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256Sum(clientKey)

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalWithoutProof := "c=" + channelBinding + ",r=" + serverNonce
	authMessage := clientFirstBare + "," + serverFirst + "," + clientFinalWithoutProof

	clientSignature := hmacSHA256(storedKey, []byte(authMessage))
	clientProof := xorBytes(clientKey, clientSignature)
	clientFinal := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)

	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))
	expectedServerSignature := hmacSHA256(serverKey, []byte(authMessage))

	fb := &msgBuilder{}
	fb.bytes([]byte(clientFinal))
	if err := writeFrame(c.w, frontendPasswordMessage, fb.buf); err != nil {
		return errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return errs.Network(err)
	}

	f2, err := readBackendFrame(c.r)
	if err != nil {
		return errs.Network(err)
	}
	if f2.Kind == backendErrorResponse {
		return errs.New(errs.KindAuthFailed, "", "connect", parseErrorResponse(f2.Payload))
	}
	if f2.Kind != backendAuthentication {
		return errs.ProtocolViolation(fmt.Errorf("expected AuthenticationSASLFinal, got %q", f2.Kind))
	}
	r2 := newMsgReader(f2.Payload)
	if sub := r2.int32(); sub != authSASLFinal {
		return errs.ProtocolViolation(fmt.Errorf("expected SASLFinal, got subcode %d", sub))
	}
	serverFinal := string(r2.remaining())
	if !strings.HasPrefix(serverFinal, "v=") {
		return errs.New(errs.KindAuthFailed, "", "connect", fmt.Errorf("malformed server final message"))
	}
	gotSig, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(serverFinal, "v="))
	if err != nil || !hmac.Equal(gotSig, expectedServerSignature) {
		return errs.New(errs.KindAuthFailed, "", "connect", fmt.Errorf("server signature mismatch"))
	}

	return c.awaitAuthOK()
}

func (c *Connection) awaitAuthOK() error {
	f, err := readBackendFrame(c.r)
	if err != nil {
		return errs.Network(err)
	}
	if f.Kind == backendErrorResponse {
		return errs.New(errs.KindAuthFailed, "", "connect", parseErrorResponse(f.Payload))
	}
	if f.Kind != backendAuthentication {
		return errs.ProtocolViolation(fmt.Errorf("expected AuthenticationOk, got %q", f.Kind))
	}
	r := newMsgReader(f.Payload)
	if sub := r.int32(); sub != authOK {
		return errs.New(errs.KindAuthFailed, "", "connect", fmt.Errorf("unexpected auth subcode %d", sub))
	}
	return nil
}

func parseServerFirst(s string) (nonce string, salt []byte, iterCount int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 {
		return "", nil, 0, fmt.Errorf("malformed server-first-message %q", s)
	}
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "r="):
			nonce = strings.TrimPrefix(p, "r=")
		case strings.HasPrefix(p, "s="):
			salt, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(p, "s="))
			if err != nil {
				return "", nil, 0, fmt.Errorf("decode salt: %w", err)
			}
		case strings.HasPrefix(p, "i="):
			iterCount, err = strconv.Atoi(strings.TrimPrefix(p, "i="))
			if err != nil {
				return "", nil, 0, fmt.Errorf("parse iteration count: %w", err)
			}
		}
	}
	if nonce == "" || salt == nil || iterCount == 0 {
		return "", nil, 0, fmt.Errorf("incomplete server-first-message %q", s)
	}
	return nonce, salt, iterCount, nil
}

func randomNonce() string {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failing means the OS entropy source is broken
	}
	return base64.RawStdEncoding.EncodeToString(buf)
}

func hmacSHA256(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	return h.Sum(nil)
}

func sha256Sum(b []byte) []byte {
	s := sha256.Sum256(b)
	return s[:]
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
