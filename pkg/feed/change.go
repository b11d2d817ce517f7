package feed

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"sync"
)

// Digest returns the base64 SHA-512 of the alerts text with insignificant
// whitespace removed. Key order is kept, so a reordered but otherwise equal
// batch produces a different digest.
func Digest(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	sum := sha512.Sum512(buf.Bytes())
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ChangeGate drops a batch identical to the one seen immediately before it.
// It holds a single digest; it is not a cache of past batches.
type ChangeGate struct {
	mu   sync.Mutex
	last string
}

// NewChangeGate creates a gate with an empty slot.
func NewChangeGate() *ChangeGate {
	return &ChangeGate{}
}

// Admit reports whether raw differs from the previously admitted batch and,
// if so, remembers it.
func (g *ChangeGate) Admit(raw []byte) bool {
	d := Digest(raw)

	g.mu.Lock()
	defer g.mu.Unlock()

	if d == g.last {
		return false
	}
	g.last = d
	return true
}

// Last returns the digest currently held, or "" before the first batch.
func (g *ChangeGate) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
