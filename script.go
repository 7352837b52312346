package ohm

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ScriptModel identifies the record a script works on. ID is empty for a
// record that has not been assigned an id yet.
type ScriptModel struct {
	Name string `msgpack:"name"`
	ID   string `msgpack:"id,omitempty"`
	Key  string `msgpack:"key,omitempty"`
}

// SaveArgs is the unit of work of ScriptSave. It travels as four msgpack
// payloads: model, flat attribute list, indices, uniques.
type SaveArgs struct {
	Model   ScriptModel
	Attrs   []string
	Indices map[string][]string
	Uniques map[string]string
}

// DeleteArgs is the unit of work of ScriptDelete: model, uniques and the
// keys of every relation container and counter owned by the record.
type DeleteArgs struct {
	Model   ScriptModel
	Uniques map[string]string
	Tracked []string
}

func (a *SaveArgs) Payloads() ([][]byte, error) {
	return encodePayloads(a.Model, a.Attrs, a.Indices, a.Uniques)
}

func (a *DeleteArgs) Payloads() ([][]byte, error) {
	return encodePayloads(a.Model, a.Uniques, a.Tracked)
}

func DecodeSaveArgs(payloads [][]byte) (*SaveArgs, error) {
	a := &SaveArgs{}
	err := decodePayloads(payloads, &a.Model, &a.Attrs, &a.Indices, &a.Uniques)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return a, nil
}

func DecodeDeleteArgs(payloads [][]byte) (*DeleteArgs, error) {
	a := &DeleteArgs{}
	err := decodePayloads(payloads, &a.Model, &a.Uniques, &a.Tracked)
	if err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	return a, nil
}

func encodePayloads(values ...any) ([][]byte, error) {
	result := make([][]byte, 0, len(values))
	for _, v := range values {
		var buf bytes.Buffer
		enc := msgpack.GetEncoder()
		enc.Reset(&buf)
		enc.SetSortMapKeys(true)
		err := enc.Encode(v)
		msgpack.PutEncoder(enc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		result = append(result, buf.Bytes())
	}
	return result, nil
}

func decodePayloads(payloads [][]byte, ptrs ...any) error {
	if len(payloads) != len(ptrs) {
		return fmt.Errorf("got %d payloads, expected %d", len(payloads), len(ptrs))
	}
	for i, ptr := range ptrs {
		err := msgpack.Unmarshal(payloads[i], ptr)
		if err != nil {
			return fmt.Errorf("failed to decode msgpack payload %d into %T: %w", i, ptr, err)
		}
	}
	return nil
}
