package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"

	kvtree "github.com/reoring/kvtree"
)

// decodeJSON reads one JSON document token by token so that object key order
// survives and repeated keys are reported instead of silently collapsed.
// Objects become OrderedMaps, numbers stay j.Number.
func decodeJSON(data []byte) (any, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec, "")
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing content after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *j.Decoder, path string) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("at %s: %w", pointer(path), err)
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			return decodeJSONObject(dec, path)
		case '[':
			return decodeJSONArray(dec, path)
		}
		return nil, fmt.Errorf("at %s: unexpected %q", pointer(path), v)
	case string, bool, j.Number, nil:
		return v, nil
	case float64:
		return j.Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	default:
		return nil, fmt.Errorf("at %s: unexpected token %T", pointer(path), tok)
	}
}

func decodeJSONObject(dec *j.Decoder, path string) (any, error) {
	m := kvtree.NewOrderedMap[string, any]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("at %s: %w", pointer(path), err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("at %s: object key is %T", pointer(path), tok)
		}
		child := path + "/" + strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
		if _, dup := m.Get(key); dup {
			return nil, fmt.Errorf("at %s: duplicate object key %q", pointer(path), key)
		}
		v, err := decodeJSONValue(dec, child)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return nil, fmt.Errorf("at %s: %w", pointer(path), err)
	}
	return m, nil
}

func decodeJSONArray(dec *j.Decoder, path string) (any, error) {
	out := []any{}
	for i := 0; dec.More(); i++ {
		v, err := decodeJSONValue(dec, path+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return nil, fmt.Errorf("at %s: %w", pointer(path), err)
	}
	return out, nil
}

func pointer(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
