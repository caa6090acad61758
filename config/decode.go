package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// DecodeStrict reads a JSON5 document from r into v. Comments and unquoted keys are accepted;
// keys that v has no field for are rejected.
func DecodeStrict(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var raw interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return err
	}
	// json5 has no unknown-field check, so the document goes through encoding/json once more.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "cannot normalize document")
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
