package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	_ Dumper   = &Store{}
	_ Restorer = &Store{}
)

type dumpHeader struct {
	TypesHash uint64
}

type dumpEntry struct {
	Key     string
	Value   interface{}
	Written time.Time
	TTL     time.Duration
}

// Dump saves cached entries and returns a number of processed entries.
//
// Dump uses encoding/gob to serialize cache entries, therefore it is necessary to
// register cached types in advance with GobRegister.
func (s *Store) Dump(w io.Writer) (int, error) {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(dumpHeader{TypesHash: GobTypesHash()}); err != nil {
		return 0, err
	}

	return s.Walk(func(e Entry) error {
		return encoder.Encode(dumpEntry{
			Key:     e.Key(),
			Value:   e.Value(),
			Written: e.WrittenAt(),
			TTL:     e.TTL(),
		})
	})
}

// Restore loads cached entries and returns number of processed entries.
//
// Entries keep their original write time, so expired entries are served stale and revalidated.
func (s *Store) Restore(r io.Reader) (int, error) {
	var (
		decoder = gob.NewDecoder(r)
		h       dumpHeader
		n       = 0
	)

	if err := decoder.Decode(&h); err != nil {
		return 0, err
	}

	if h.TypesHash != GobTypesHash() {
		return 0, fmt.Errorf("%w: %d expected, %d received", ErrTypesMismatch, GobTypesHash(), h.TypesHash)
	}

	now := s.now()

	for {
		var e dumpEntry

		err := decoder.Decode(&e)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return n, err
		}

		b := s.bucket(e.Key)

		b.Lock()
		b.data[e.Key] = &entry{
			key:      e.Key,
			data:     e.Value,
			written:  e.Written,
			accessed: now,
			ttl:      e.TTL,
		}
		b.Unlock()

		n++
	}

	return n, nil
}

var gobTypes = struct {
	sync.Mutex
	hash uint64
	seen map[reflect.Type]bool
}{seen: map[reflect.Type]bool{}}

// GobTypesHash returns a fingerprint of registered types, it changes with any exported field of those types.
func GobTypesHash() uint64 {
	gobTypes.Lock()
	defer gobTypes.Unlock()

	return gobTypes.hash
}

// GobRegister enables dump and restore of cached values of given types.
//
// Registering the same type again has no effect.
func GobRegister(values ...interface{}) {
	gobTypes.Lock()
	defer gobTypes.Unlock()

	for _, value := range values {
		t := reflect.TypeOf(value)
		if gobTypes.seen[t] {
			continue
		}

		gobTypes.seen[t] = true

		d := xxhash.New()
		_, _ = d.WriteString(t.PkgPath() + "." + t.String()) // nolint:errcheck
		writeTypeShape(d, t, map[reflect.Type]bool{})

		// Order of registration does not matter.
		gobTypes.hash ^= d.Sum64()

		gob.Register(value)
	}
}

// writeTypeShape writes names and kinds of exported fields, element types are followed recursively.
func writeTypeShape(d *xxhash.Digest, t reflect.Type, visited map[reflect.Type]bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if visited[t] {
		return
	}

	visited[t] = true

	switch t.Kind() { // nolint:exhaustive
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}

			if !f.Anonymous {
				_, _ = d.WriteString(f.Name) // nolint:errcheck
			}

			writeTypeShape(d, f.Type, visited)
		}
	case reflect.Slice, reflect.Array:
		_, _ = d.WriteString("[]") // nolint:errcheck
		writeTypeShape(d, t.Elem(), visited)
	case reflect.Map:
		_, _ = d.WriteString("map") // nolint:errcheck
		writeTypeShape(d, t.Key(), visited)
		writeTypeShape(d, t.Elem(), visited)
	default:
		_, _ = d.WriteString(t.String()) // nolint:errcheck
	}
}
