package cache

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes values for drivers that store bytes.
type Codec[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// MsgpackCodec encodes values with msgpack. It is the default Store codec.
type MsgpackCodec[V any] struct{}

func (MsgpackCodec[V]) Marshal(v V) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (MsgpackCodec[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

var _ Codec[any] = MsgpackCodec[any]{}
