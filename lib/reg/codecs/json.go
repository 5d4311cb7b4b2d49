package codecs

import (
	"encoding/json"
	"io"
)

type jsonCodec struct {
	name    string
	variant Variant
}

func (T jsonCodec) Name() string {
	return T.name
}

func (T jsonCodec) Format() Format {
	return FormatJSON
}

func (T jsonCodec) Variant() Variant {
	return T.variant
}

func (T jsonCodec) ContentType() string {
	return "application/json"
}

func (T jsonCodec) Encode(w io.Writer, v any) error {
	if T.variant == VariantMini {
		v = minify(v)
	}
	return json.NewEncoder(w).Encode(v)
}

func (T jsonCodec) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

var _ Codec = jsonCodec{}
