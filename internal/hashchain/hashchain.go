// Package hashchain computes the tamper-evident digest chain that backs
// every audited trail in the console (delegation lifecycles, dossier
// comment threads). It is pure computation: no storage, no clock, no I/O.
//
// Every chain is scoped to one aggregate. The first link of a chain uses
// the fixed Genesis sentinel as its previous hash; each subsequent link
// folds the previous link's digest into its own, so any mutation of a
// stored link invalidates every digest after it.
package hashchain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Genesis is the previous-hash sentinel for the first link of a chain.
// It is substituted for null/empty at every storage boundary so the hash
// input is never ambiguous.
const Genesis = "genesis"

// Canonicalize re-encodes a JSON document with object keys sorted and
// numbers preserved verbatim. Two logically identical payloads always
// canonicalize to the same bytes regardless of the key order or
// whitespace they were produced with.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("hashchain.Canonicalize: decode: %w", err)
	}

	// encoding/json sorts map keys and emits json.Number verbatim, which
	// is exactly the canonical form we need.
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hashchain.Canonicalize: encode: %w", err)
	}
	return out, nil
}

// Digest computes the chain digest for one link. details must be a JSON
// document (it is canonicalized before hashing); previousHash is the
// digest of the prior link, or Genesis (an empty string is treated as
// Genesis). The timestamp is normalized to UTC RFC 3339 so the digest
// does not depend on the zone the caller happened to be in.
func Digest(details []byte, eventType, actorID string, ts time.Time, previousHash string) (string, error) {
	canonical, err := Canonicalize(details)
	if err != nil {
		return "", err
	}

	if previousHash == "" {
		previousHash = Genesis
	}

	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte{'|'})
	h.Write([]byte(eventType))
	h.Write([]byte{'|'})
	h.Write([]byte(actorID))
	h.Write([]byte{'|'})
	h.Write([]byte(ts.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{'|'})
	h.Write([]byte(previousHash))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Link is one element of a chain as read back from storage, carrying both
// the inputs that were hashed and the digests that were stored.
type Link struct {
	Details      []byte
	EventType    string
	ActorID      string
	Timestamp    time.Time
	PreviousHash string
	EventHash    string
}

// VerifyChain replays links in storage order from Genesis, recomputing
// every digest. It returns the index of the first corrupt link, or -1
// when the chain is intact. A link is corrupt when its stored previous
// hash does not continue the chain or its stored digest does not match
// the recomputation.
func VerifyChain(links []Link) (int, error) {
	prev := Genesis
	for i, l := range links {
		if l.PreviousHash != prev {
			return i, nil
		}
		want, err := Digest(l.Details, l.EventType, l.ActorID, l.Timestamp, l.PreviousHash)
		if err != nil {
			return i, fmt.Errorf("hashchain.VerifyChain: link %d: %w", i, err)
		}
		if want != l.EventHash {
			return i, nil
		}
		prev = l.EventHash
	}
	return -1, nil
}
