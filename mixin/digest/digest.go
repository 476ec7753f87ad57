// Package digest provides content-addressed summaries of class, hook and
// state definitions, with a canonical CBOR wire encoding. Digests let
// tooling detect definition drift between engines or snapshots without
// shipping method bodies.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/stately-go/stately/mixin"
)

// StateDigest is a compact representation of one state: its name, its
// parent state name (empty for root) and the selectors it overrides.
type StateDigest struct {
	Name      string   `cbor:"1,keyasint"`
	Parent    string   `cbor:"2,keyasint"`
	Selectors []string `cbor:"3,keyasint"`
}

// ClassDigest is a compact representation of a class suitable for content
// addressing: structural metadata plus hook and state shape, but no method
// bodies.
type ClassDigest struct {
	Name           string         `cbor:"1,keyasint"`
	SuperclassName string         `cbor:"2,keyasint"`
	InstanceVars   []string       `cbor:"3,keyasint"`
	Selectors      []string       `cbor:"4,keyasint"`
	HooksBefore    map[string]int `cbor:"5,keyasint"`
	HooksAfter     map[string]int `cbor:"6,keyasint"`
	States         []StateDigest  `cbor:"7,keyasint"`
	Hash           [32]byte       `cbor:"8,keyasint"`
}

// DigestClass builds the digest of a class as currently registered in the
// engine, including hook counts and the state tree, and computes its hash.
func DigestClass(e *mixin.Engine, c *mixin.Class) *ClassDigest {
	d := &ClassDigest{
		Name:        c.Name,
		HooksBefore: make(map[string]int),
		HooksAfter:  make(map[string]int),
	}
	if c.Superclass != nil {
		d.SuperclassName = c.Superclass.Name
	}
	d.InstanceVars = append(d.InstanceVars, c.InstanceVars...)

	d.Selectors = c.Selectors()
	sort.Strings(d.Selectors)

	for _, method := range e.Hooks().Methods(c) {
		before, after := e.Hooks().Count(c, method)
		if before > 0 {
			d.HooksBefore[method] = before
		}
		if after > 0 {
			d.HooksAfter[method] = after
		}
	}

	if set := c.States(); set != nil {
		names := set.Names()
		sort.Strings(names)
		for _, name := range names {
			s := set.Get(name)
			sd := StateDigest{Name: name}
			if s.Parent != nil {
				sd.Parent = s.Parent.Name
			}
			sd.Selectors = s.Selectors()
			sort.Strings(sd.Selectors)
			d.States = append(d.States, sd)
		}
	}

	d.Hash = d.computeHash()
	return d
}

// computeHash hashes the digest's fields in a fixed order. Maps are walked
// in sorted key order so the hash is deterministic.
func (d *ClassDigest) computeHash() [32]byte {
	h := sha256.New()
	writeStr := func(s string) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	writeCounts := func(m map[string]int) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeStr(k)
			var n [4]byte
			binary.BigEndian.PutUint32(n[:], uint32(m[k]))
			h.Write(n[:])
		}
	}

	writeStr(d.Name)
	writeStr(d.SuperclassName)
	for _, v := range d.InstanceVars {
		writeStr(v)
	}
	for _, sel := range d.Selectors {
		writeStr(sel)
	}
	writeCounts(d.HooksBefore)
	writeCounts(d.HooksAfter)
	for _, sd := range d.States {
		writeStr(sd.Name)
		writeStr(sd.Parent)
		for _, sel := range sd.Selectors {
			writeStr(sel)
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HexHash returns the digest hash as a hex string.
func (d *ClassDigest) HexHash() string {
	return hex.EncodeToString(d.Hash[:])
}

// DigestAll digests every class registered in the engine, sorted by name.
func DigestAll(e *mixin.Engine) []*ClassDigest {
	classes := e.Classes().All()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	result := make([]*ClassDigest, 0, len(classes))
	for _, c := range classes {
		result = append(result, DigestClass(e, c))
	}
	return result
}
