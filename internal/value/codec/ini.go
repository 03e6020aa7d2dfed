package codec

import (
	"bytes"
	"strconv"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/value"
	ini "gopkg.in/ini.v1"
)

// INICodec is not grounded in any example repo's go.mod — none of the
// retrieved examples depends on an INI library. gopkg.in/ini.v1 is named
// here as the standard choice in the wider Go ecosystem: it preserves
// section and key order, which spec.md §4.C's ordering guarantee needs.
//
// INI's two-level shape (section -> flat key/value) is exposed as a
// two-level Object (spec.md §4.C): the root object's keys are section
// names, and each section's value is itself a flat object of scalars.
// Anything deeper is UnsupportedForIniNesting.
type INICodec struct{}

func (INICodec) Parse(data []byte) (value.Value, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{PreserveSurroundedQuote: true}, data)
	if err != nil {
		return value.Value{}, &jinerr.ParseError{Format: "ini", Message: err.Error()}
	}

	root := value.NewObject()
	for _, sec := range cfg.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection && len(sec.KeyStrings()) == 0 {
			continue
		}
		secObj := value.NewObject()
		for _, key := range sec.Keys() {
			secObj.Set(key.Name(), iniScalar(key.Value()))
		}
		root.Set(name, value.ObjectValue(secObj))
	}
	return value.ObjectValue(root), nil
}

func iniScalar(s string) value.Value {
	if b, err := strconv.ParseBool(s); err == nil {
		return value.Bool(b)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.String(s)
}

func iniScalarString(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), true
	case value.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64), true
	case value.KindString:
		s, _ := v.AsStr()
		return s, true
	default:
		return "", false
	}
}

func (INICodec) Serialize(v value.Value) ([]byte, error) {
	if !v.IsObject() {
		return nil, &jinerr.UnsupportedForIniNestingError{Path: "$"}
	}
	root, _ := v.AsObject()

	cfg := ini.Empty()
	for _, secName := range root.Keys() {
		secVal, _ := root.Get(secName)
		secObj, ok := secVal.AsObject()
		if !ok {
			return nil, &jinerr.UnsupportedForIniNestingError{Path: secName}
		}
		sec, err := cfg.NewSection(secName)
		if err != nil {
			return nil, err
		}
		for _, keyName := range secObj.Keys() {
			keyVal, _ := secObj.Get(keyName)
			s, ok := iniScalarString(keyVal)
			if !ok {
				return nil, &jinerr.UnsupportedForIniNestingError{Path: secName + "." + keyName}
			}
			if _, err := sec.NewKey(keyName, s); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
