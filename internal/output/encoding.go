package output

import (
	"bytes"
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// DeterministicEncode returns compact JSON with sorted keys.
func DeterministicEncode(v any) ([]byte, error) {
	return encode(v, "")
}

// DeterministicEncodeIndented is DeterministicEncode with indentation.
func DeterministicEncodeIndented(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var tree any
	if v != nil {
		var err error
		if tree, err = normalize(reflect.ValueOf(v)); err != nil {
			return nil, err
		}
	}

	// encoding/json already sorts map keys; every object is a map by now
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var (
	jsonMarshaler = reflect.TypeFor[json.Marshaler]()
	textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()
)

// normalize converts v into plain maps, slices and scalars. A nil result
// means "leave this out".
func normalize(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Implements(jsonMarshaler) || v.Type().Implements(textMarshaler) {
			break
		}
		v = v.Elem()
	}

	switch t := v.Type(); {
	case t.Implements(jsonMarshaler):
		return reparse(v.Interface().(json.Marshaler))
	case t.Implements(textMarshaler):
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}

	switch v.Kind() {
	case reflect.Struct:
		return normalizeStruct(v)
	case reflect.Map:
		return normalizeMap(v)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if v.Len() == 0 {
				return nil, nil
			}
			return v.Bytes(), nil
		}
		return normalizeList(v)
	case reflect.Array:
		return normalizeList(v)
	case reflect.Float32, reflect.Float64:
		return RoundFloat(v.Float()), nil
	}
	return v.Interface(), nil
}

// reparse decodes a marshaler's output so its objects get sorted like ours.
func reparse(m json.Marshaler) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	if generic == nil {
		return nil, nil
	}
	return normalize(reflect.ValueOf(generic))
}

func normalizeList(v reflect.Value) (any, error) {
	if v.Len() == 0 {
		return nil, nil
	}
	out := make([]any, v.Len())
	for i := range out {
		item, err := normalize(v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

func normalizeMap(v reflect.Value) (any, error) {
	out := make(map[string]any, v.Len())
	for it := v.MapRange(); it.Next(); {
		item, err := normalize(it.Value())
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		key, err := keyString(it.Key())
		if err != nil {
			return nil, err
		}
		out[key] = item
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func keyString(k reflect.Value) (string, error) {
	if k.Type().Implements(textMarshaler) {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	raw, err := json.Marshal(k.Interface())
	return strings.Trim(string(raw), `"`), err
}

type field struct {
	index     int
	name      string
	omitEmpty bool
}

var fieldCache sync.Map // reflect.Type -> []field

// fieldsOf lists the exported, non-ignored fields of a struct type.
func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	var fields []field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}
		omit := false
		for _, o := range strings.Split(opts, ",") {
			omit = omit || o == "omitempty" || o == "omitzero"
		}
		fields = append(fields, field{index: i, name: name, omitEmpty: omit})
	}
	cached, _ := fieldCache.LoadOrStore(t, fields)
	return cached.([]field)
}

func normalizeStruct(v reflect.Value) (any, error) {
	out := make(map[string]any)
	for _, f := range fieldsOf(v.Type()) {
		fv := v.Field(f.index)
		if f.omitEmpty && (fv.IsZero() || reportsZero(fv)) {
			continue
		}
		item, err := normalize(fv)
		if err != nil {
			return nil, err
		}
		if item == nil || (f.omitEmpty && empty(item)) {
			continue
		}
		out[f.name] = item
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

type zeroer interface{ IsZero() bool }

// reportsZero asks the value itself, so a zero time.Time carrying a
// location still counts as empty.
func reportsZero(v reflect.Value) bool {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return true
	}
	z, ok := v.Interface().(zeroer)
	return ok && z.IsZero()
}

// empty reports the omitempty zero values that survive normalization,
// such as a marshaler producing "" or 0.
func empty(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		return x == "0"
	case float64:
		return x == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32:
		return rv.IsZero()
	}
	return false
}
