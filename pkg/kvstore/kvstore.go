package kvstore

import (
	"encoding/json"
	"errors"
)

var (
	ErrKeyEmpty    = errors.New("kvstore: key is empty")
	ErrKeyNotFound = errors.New("kvstore: key not found")
)

type KVPair struct {
	Key   string
	Value []byte
}

// Store is a minimal key-value abstraction. Badger is the only backend in
// this repo; the interface keeps the typed stores independent of it.
type Store interface {
	Set(k string, v string) error
	Get(k string) (v string, err error)
	// SetAny/GetAny go through the store codec for struct values.
	SetAny(k string, v any) error
	GetAny(k string, v any) (found bool, err error)

	List(prefix string) ([]*KVPair, error)
	Delete(k string) error
	Close() error
}

// Codec encodes/decodes Go values to/from slices of bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the codec used by every store in this repo.
var JSON = JSONCodec{}

type JSONCodec struct{}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
