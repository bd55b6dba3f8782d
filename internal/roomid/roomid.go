// Package roomid generates memorable room identifiers such as
// "calm-otter-harbor-lantern".
package roomid

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrExhausted is returned when no free id was found within the retry budget.
var ErrExhausted = errors.New("roomid: no unused id found")

const maxAttempts = 32

var lists = [][]string{adjectives, animals, places, objects}

// New returns a random four word id.
func New() (string, error) {
	words := make([]string, len(lists))
	for i, list := range lists {
		n, err := randomIndex(len(list))
		if err != nil {
			return "", err
		}
		words[i] = list[n]
	}
	return strings.Join(words, "-"), nil
}

// NewUnique keeps drawing ids until inUse reports one as free.
func NewUnique(inUse func(string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		id, err := New()
		if err != nil {
			return "", err
		}
		if !inUse(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// randomIndex returns a cryptographically secure index into a slice of length max.
func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
