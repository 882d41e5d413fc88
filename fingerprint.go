package kvtree

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// FingerprintPrefix tags fingerprints with the canonical form version.
const FingerprintPrefix = "kvt1:"

// Fingerprint returns a content identifier for a tree:
// "kvt1:" + hex(blake3-256(CanonicalJSON(n))). Object key order does not
// affect it, so a multimap and a Go map holding the same groups agree.
func Fingerprint(n Node) (string, error) {
	canon, err := CanonicalJSON(n)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(canon)
	return FingerprintPrefix + hex.EncodeToString(sum[:]), nil
}
