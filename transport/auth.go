// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Token handshake, run before the first frame on an authenticated
// connection:
//
//	listener -> dialer: "TSA1" + 32-byte nonce
//	dialer -> listener: 32-byte BLAKE3 keyed hash of the nonce
//	listener -> dialer: 1 byte, tokenAccepted or tokenRejected
//
// The hash key is the BLAKE3 hash of the shared token, so the token
// itself never crosses the connection.
const (
	tokenMagic    = "TSA1"
	nonceSize     = 32
	answerSize    = 32
	tokenAccepted = 1
	tokenRejected = 0
)

// DefaultHandshakeTimeout bounds a token handshake when the caller sets
// no timeout of its own.
const DefaultHandshakeTimeout = 5 * time.Second

var (
	// ErrTokenRejected is returned by the dialing side when the listener
	// did not accept its token, and by the listening side when the
	// dialer's answer did not match.
	ErrTokenRejected = errors.New("transport: token rejected")

	// ErrNoHandshake is returned by the dialing side when the peer does
	// not open with a token challenge.
	ErrNoHandshake = errors.New("transport: peer did not send a token challenge")
)

// ReadToken reads a shared token from path. Surrounding whitespace is
// ignored; an empty token is an error.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}

// Authenticate runs the listening side of the token handshake on a
// freshly accepted connection. It returns ErrTokenRejected when the
// dialer proves a different token; the caller closes the connection.
func Authenticate(conn net.Conn, token string, timeout time.Duration) error {
	if err := conn.SetDeadline(handshakeDeadline(timeout)); err != nil {
		return err
	}
	defer conn.SetDeadline(time.Time{})

	challenge := make([]byte, len(tokenMagic)+nonceSize)
	copy(challenge, tokenMagic)
	if _, err := rand.Read(challenge[len(tokenMagic):]); err != nil {
		return fmt.Errorf("token challenge: %w", err)
	}
	if _, err := conn.Write(challenge); err != nil {
		return fmt.Errorf("sending token challenge: %w", err)
	}

	answer := make([]byte, answerSize)
	if _, err := io.ReadFull(conn, answer); err != nil {
		return fmt.Errorf("reading token answer: %w", err)
	}
	expected := tokenAnswer(token, challenge[len(tokenMagic):])
	if subtle.ConstantTimeCompare(expected, answer) != 1 {
		conn.Write([]byte{tokenRejected})
		return ErrTokenRejected
	}
	if _, err := conn.Write([]byte{tokenAccepted}); err != nil {
		return fmt.Errorf("accepting token: %w", err)
	}
	return nil
}

// presentToken runs the dialing side of the token handshake.
func presentToken(conn net.Conn, token string, deadline time.Time) error {
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	defer conn.SetDeadline(time.Time{})

	challenge := make([]byte, len(tokenMagic)+nonceSize)
	if _, err := io.ReadFull(conn, challenge); err != nil {
		return fmt.Errorf("reading token challenge: %w", err)
	}
	if string(challenge[:len(tokenMagic)]) != tokenMagic {
		return ErrNoHandshake
	}
	if _, err := conn.Write(tokenAnswer(token, challenge[len(tokenMagic):])); err != nil {
		return fmt.Errorf("sending token answer: %w", err)
	}
	var verdict [1]byte
	if _, err := io.ReadFull(conn, verdict[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTokenRejected
		}
		return fmt.Errorf("reading token verdict: %w", err)
	}
	if verdict[0] != tokenAccepted {
		return ErrTokenRejected
	}
	return nil
}

func tokenAnswer(token string, nonce []byte) []byte {
	key := blake3.Sum256([]byte(token))
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("transport: token key: " + err.Error())
	}
	hasher.Write(nonce)
	return hasher.Sum(nil)
}

func handshakeDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	return time.Now().Add(timeout)
}

// TokenListener wraps a listener so Accept only returns connections that
// passed [Authenticate]. Rejected connections are closed and reported to
// Rejected, if set, and Accept waits for the next one.
type TokenListener struct {
	net.Listener
	Token            string
	HandshakeTimeout time.Duration
	Rejected         func(remote net.Addr, err error)
}

// Accept waits for the next authenticated connection.
func (l *TokenListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if err := Authenticate(conn, l.Token, l.HandshakeTimeout); err != nil {
			conn.Close()
			if l.Rejected != nil {
				l.Rejected(conn.RemoteAddr(), err)
			}
			continue
		}
		return conn, nil
	}
}
