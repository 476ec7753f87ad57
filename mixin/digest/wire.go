package digest

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal digests encode to equal
// bytes, which the content-addressed store depends on.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("digest: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a ClassDigest to CBOR bytes.
func Marshal(d *ClassDigest) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// Unmarshal deserializes a ClassDigest from CBOR bytes.
func Unmarshal(data []byte) (*ClassDigest, error) {
	var d ClassDigest
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("digest: unmarshal class digest: %w", err)
	}
	return &d, nil
}
