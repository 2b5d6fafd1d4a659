package ir

// Clone returns a deep copy of v. Containers are copied; scalars are values.
func Clone(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the object.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return nil
	}
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = Clone(v)
	}
	return out
}

// Equal reports whether two values are structurally identical.
// Absence (nil) only equals absence; IRNull only equals IRNull.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRInt:
		bv, ok := b.(IRInt)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, present := bv[k]
			if !present || !Equal(v, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsZeroScalar reports whether v is the zero value of a string or number.
// Booleans are never considered zero: an explicit false is a real value.
func IsZeroScalar(v IRValue) bool {
	switch val := v.(type) {
	case IRString:
		return val == ""
	case IRInt:
		return val == 0
	default:
		return false
	}
}

// IsScalar reports whether v is a string, number or boolean.
func IsScalar(v IRValue) bool {
	switch v.(type) {
	case IRString, IRInt, IRBool:
		return true
	default:
		return false
	}
}
