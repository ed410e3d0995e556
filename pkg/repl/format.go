package repl

import (
	"strconv"

	"github.com/dop251/goja"
)

// formatValue renders an evaluation result the way the console shows it
// after "=> ". It returns "" for undefined so statements print nothing.
func (s *Session) formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	if goja.IsNull(v) {
		return "null"
	}
	if str, ok := v.Export().(string); ok {
		return strconv.Quote(str)
	}
	return s.inspect(v)
}

// printValue renders a print/console argument. Strings are written as is.
func (s *Session) printValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if str, ok := v.Export().(string); ok {
		return str
	}
	return s.inspect(v)
}

// inspect renders objects as JSON where that is meaningful and falls back to
// the JavaScript string conversion otherwise.
func (s *Session) inspect(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}

	if _, isFn := goja.AssertFunction(obj); isFn {
		name := obj.Get("name")
		if name == nil || name.String() == "" {
			return "[Function (anonymous)]"
		}
		return "[Function: " + name.String() + "]"
	}

	switch obj.ClassName() {
	case "Error", "Date", "RegExp":
		return obj.String()
	}

	if js, ok := s.stringify(obj); ok {
		return js
	}
	return obj.String()
}

func (s *Session) stringify(obj *goja.Object) (string, bool) {
	jsonObj := s.vm.Get("JSON")
	if jsonObj == nil {
		return "", false
	}
	fn, ok := goja.AssertFunction(jsonObj.ToObject(s.vm).Get("stringify"))
	if !ok {
		return "", false
	}
	out, err := fn(jsonObj, obj)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "", false
	}
	return out.String(), true
}
