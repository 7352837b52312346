package ohm

import (
	"encoding"
	"encoding/json"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"
)

// Role describes how the persistence layer treats a field.
type Role uint8

const (
	// Unique fields are enforced store-wide unique among live records.
	Unique Role = 1 << iota
	// Indexed fields maintain an index set per value.
	Indexed
	// Optional fields keep their default when absent from a stored hash.
	Optional
)

func (r Role) Contains(v Role) bool {
	return (r & v) == v
}

func joinRoles(roles []Role) Role {
	var r Role
	for _, v := range roles {
		r |= v
	}
	return r
}

type fieldsMode int

const (
	modeBind fieldsMode = iota
	modeEncode
	modeDecode
)

var (
	errInvalidUTF8  = errors.New("value is not valid UTF-8 text")
	errMissingField = errors.New("missing field")
)

// Fields is handed to Model.Fields. Each call declares one field; depending
// on what the walk is for, the value behind the pointer is read (encoding),
// written (decoding) or only described.
type Fields struct {
	mode  fieldsMode
	owner Model
	info  *ModelInfo
	input map[string]string
	attrs []Attr
	err   error
}

// Err returns the first error encountered during the walk.
func (f *Fields) Err() error {
	return f.err
}

func (f *Fields) declare(attr string, r Role) {
	if r.Contains(Unique) {
		f.info.Uniques = append(f.info.Uniques, attr)
	}
	if r.Contains(Indexed) {
		f.info.Indices = append(f.info.Indices, attr)
	}
}

func (f *Fields) scalar(name string, roles []Role, get func() (string, error), set func(s string) error) {
	r := joinRoles(roles)
	f.declare(name, r)
	if f.err != nil {
		return
	}
	switch f.mode {
	case modeEncode:
		s, err := get()
		if err == nil && !utf8.ValidString(s) {
			err = errInvalidUTF8
		}
		if err != nil {
			f.err = &EncodingError{f.info.Name, name, err}
			return
		}
		f.attrs = append(f.attrs, Attr{name, s})
	case modeDecode:
		s, found := f.input[name]
		if !found {
			if !r.Contains(Optional) {
				f.err = &DecoderError{f.info.Name, name, errMissingField}
			}
			return
		}
		if err := set(s); err != nil {
			f.err = &DecoderError{f.info.Name, name, err}
		}
	}
}

// Unique declares a unique constraint on an attribute by name.
func (f *Fields) Unique(attr string) {
	f.declare(attr, Unique)
}

// Index declares an index on an attribute by name. For references, the
// reference field name indexes its "<name>_id" attribute.
func (f *Fields) Index(attr string) {
	f.declare(attr, Indexed)
}

func (f *Fields) String(name string, p *string, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return *p, nil
	}, func(s string) error {
		*p = s
		return nil
	})
}

// Bytes declares a text field held as a byte slice; it must be valid UTF-8.
func (f *Fields) Bytes(name string, p *[]byte, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return string(*p), nil
	}, func(s string) error {
		*p = []byte(s)
		return nil
	})
}

func (f *Fields) Int(name string, p *int, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return strconv.Itoa(*p), nil
	}, func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

func (f *Fields) Int64(name string, p *int64, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return strconv.FormatInt(*p, 10), nil
	}, func(s string) error {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

func (f *Fields) Uint64(name string, p *uint64, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return strconv.FormatUint(*p, 10), nil
	}, func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

func (f *Fields) Float64(name string, p *float64, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return strconv.FormatFloat(*p, 'g', -1, 64), nil
	}, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

func (f *Fields) Bool(name string, p *bool, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		return strconv.FormatBool(*p), nil
	}, func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

// Time stores RFC 3339 timestamps in UTC; the zero time is stored as "".
func (f *Fields) Time(name string, p *time.Time, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		if p.IsZero() {
			return "", nil
		}
		return p.UTC().Format(time.RFC3339Nano), nil
	}, func(s string) error {
		if s == "" {
			*p = time.Time{}
			return nil
		}
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
}

// TextValue is a field value with its own text representation.
type TextValue interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

func (f *Fields) Text(name string, v TextValue, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		raw, err := v.MarshalText()
		return string(raw), err
	}, func(s string) error {
		return v.UnmarshalText([]byte(s))
	})
}

// JSON stores an owned composite value as JSON text. ptr must be a pointer.
func (f *Fields) JSON(name string, ptr any, roles ...Role) {
	f.scalar(name, roles, func() (string, error) {
		raw, err := json.Marshal(ptr)
		return string(raw), err
	}, func(s string) error {
		return json.Unmarshal([]byte(s), ptr)
	})
}

// Ref declares a reference field. It is stored as the "<name>_id" attribute
// and omitted while unset. Declaring it Indexed indexes "<name>_id".
func (f *Fields) Ref(name string, r refField, roles ...Role) {
	attr := name + "_id"
	rr := joinRoles(roles)
	if rr.Contains(Indexed) {
		f.declare(name, Indexed)
	}
	if rr.Contains(Unique) {
		f.declare(attr, Unique)
	}
	if f.err != nil {
		return
	}
	p := r.idPtr()
	switch f.mode {
	case modeEncode:
		if *p != 0 {
			f.attrs = append(f.attrs, Attr{attr, formatID(*p)})
		}
	case modeDecode:
		s, found := f.input[attr]
		if !found || s == "" {
			*p = 0
			return
		}
		id, err := parseID(s)
		if err != nil {
			f.err = &DecoderError{f.info.Name, attr, err}
			return
		}
		*p = id
	}
}

// Counter declares a counter field. Counters live outside the record hash.
func (f *Fields) Counter(name string, c *Counter) {
	f.info.Counters = append(f.info.Counters, name)
	c.bind(f.owner, name)
}

// List declares an ordered relation container.
func (f *Fields) List(name string, l relation) {
	f.info.Lists = append(f.info.Lists, name)
	l.bind(f.owner, name)
}

// Set declares an unordered relation container.
func (f *Fields) Set(name string, s relation) {
	f.info.Sets = append(f.info.Sets, name)
	s.bind(f.owner, name)
}

// Collection declares a derived view of all records of another type whose
// "<ref>_id" attribute equals this record's id. An empty ref defaults to the
// lowercased name of the owning model.
func (f *Fields) Collection(name string, c relation, ref string) {
	if ref == "" {
		ref = defaultCollectionRef(f.info.Name)
	}
	c.bind(f.owner, ref)
}

type relation interface {
	bind(owner Model, field string)
}

type refField interface {
	idPtr() *uint64
}
