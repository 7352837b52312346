package ohm

import (
	"strings"
)

// Attr is one flattened (attribute name, value) pair of a record.
type Attr struct {
	Name  string
	Value string
}

// Encoded is a record flattened into attributes, in declaration order, plus
// the metadata collected during the walk.
type Encoded struct {
	*ModelInfo
	ID    uint64
	Attrs []Attr
}

// Encode flattens m. It fails with *EncodingError if a value cannot be
// rendered as text. The id is not part of the attributes.
func Encode(m Model) (*Encoded, error) {
	f := Fields{mode: modeEncode, owner: m, info: newModelInfo(m)}
	m.Fields(&f)
	if f.err != nil {
		return nil, f.err
	}
	return &Encoded{
		ModelInfo: f.info,
		ID:        m.ID(),
		Attrs:     f.attrs,
	}, nil
}

// Decode fills m from a stored attribute map. The id attribute must be
// present in attrs; the caller injects it because record hashes do not store
// their own id. Unknown keys are ignored.
func Decode(attrs map[string]string, m Model) error {
	info := newModelInfo(m)
	idStr, found := attrs[info.IDField]
	if !found {
		return &DecoderError{info.Name, info.IDField, errMissingField}
	}
	id, err := parseID(idStr)
	if err != nil {
		return &DecoderError{info.Name, info.IDField, err}
	}

	f := Fields{mode: modeDecode, owner: m, info: info, input: attrs}
	m.Fields(&f)
	if f.err != nil {
		return f.err
	}
	m.SetID(id)
	return nil
}

// Flat returns attributes as an alternating name/value list.
func (e *Encoded) Flat() []string {
	flat := make([]string, 0, 2*len(e.Attrs))
	for _, a := range e.Attrs {
		flat = append(flat, a.Name, a.Value)
	}
	return flat
}

// Get returns the value of an attribute.
func (e *Encoded) Get(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// partition picks the unique and indexed attribute values out of the
// encoded attributes. An attribute "<x>_id" is indexed when "<x>" is a
// declared index. Every declared unique must be present.
func (e *Encoded) partition() (uniques map[string]string, indices map[string][]string, err error) {
	uniqueFields := make(map[string]bool, len(e.Uniques))
	for _, name := range e.Uniques {
		uniqueFields[name] = true
	}
	indexFields := make(map[string]bool, len(e.Indices))
	for _, name := range e.Indices {
		indexFields[name] = true
	}

	uniques = make(map[string]string)
	indices = make(map[string][]string)
	for _, a := range e.Attrs {
		if uniqueFields[a.Name] {
			delete(uniqueFields, a.Name)
			uniques[a.Name] = a.Value
		}
		if indexFields[a.Name] {
			delete(indexFields, a.Name)
			indices[a.Name] = []string{a.Value}
		} else if len(a.Name) > 3 && strings.HasSuffix(a.Name, "_id") && indexFields[a.Name[:len(a.Name)-3]] {
			delete(indexFields, a.Name[:len(a.Name)-3])
			indices[a.Name] = []string{a.Value}
		}
	}
	// report in declaration order so the error is deterministic
	for _, name := range e.Uniques {
		if uniqueFields[name] {
			return nil, nil, &UnknownIndexError{e.Name, name}
		}
	}
	return uniques, indices, nil
}
