// Package state encodes the anti-forgery state value round-tripped
// through an identity provider during the authorization-code flow.
//
// The encoding is reversible but deliberately unsigned: integrity comes
// from the byte-for-byte comparison against the mirrored state cookie,
// not from the encoding itself.
package state

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrMalformedState is returned when an opaque state value cannot be
// decoded back into its components.
var ErrMalformedState = errors.New("malformed state parameter")

// State carries the post-login redirect target and a random nonce for
// a single login attempt.
type State struct {
	RedirectTarget string `json:"redirect"`
	Nonce          string `json:"nonce"`
}

// Encode serializes the state into an opaque URL-safe string.
func Encode(redirectTarget, nonce string) string {
	data, _ := json.Marshal(State{
		RedirectTarget: redirectTarget,
		Nonce:          nonce,
	})
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode reverses Encode. Returns ErrMalformedState on any structural
// failure, including a missing nonce.
func Decode(opaque string) (State, error) {
	data, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return State{}, ErrMalformedState
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, ErrMalformedState
	}
	if s.Nonce == "" {
		return State{}, ErrMalformedState
	}
	return s, nil
}
