package normalize

import "github.com/sells-group/brand-media/internal/extract"

// fields gives best-effort, never-failing access to the members of a raw
// record. A non-object record behaves like an empty one.
type fields struct {
	obj extract.Object
}

func fieldsOf(v extract.Value) fields {
	obj, _ := v.(extract.Object)
	return fields{obj: obj}
}

// str returns the member as a string pointer. Strings and numbers are
// accepted; empty strings, null and any other kind yield nil.
func (f fields) str(key string) *string {
	v, ok := f.obj.Get(key)
	if !ok {
		return nil
	}
	return scalar(v)
}

// first returns the first non-nil of the given keys.
func (f fields) first(keys ...string) *string {
	for _, k := range keys {
		if s := f.str(k); s != nil {
			return s
		}
	}
	return nil
}

// list returns the member as a slice, or nil when it is not an array.
func (f fields) list(key string) []extract.Value {
	v, ok := f.obj.Get(key)
	if !ok {
		return nil
	}
	arr, _ := v.(extract.Array)
	return arr
}

// strs returns the member's array elements as string pointers, keeping
// nil entries so that callers see one slot per element.
func (f fields) strs(key string) []*string {
	arr := f.list(key)
	if arr == nil {
		return nil
	}
	out := make([]*string, 0, len(arr))
	for _, e := range arr {
		out = append(out, scalar(e))
	}
	return out
}

func scalar(v extract.Value) *string {
	var s string
	switch t := v.(type) {
	case extract.String:
		s = string(t)
	case extract.Number:
		s = string(t)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}
