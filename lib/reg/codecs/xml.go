package codecs

import (
	"encoding/xml"
	"io"

	"gfx.cafe/gfx/regat/lib/reg/instance"
)

// XML cannot encode a bare list, so record sets travel inside an
// <instances> wrapper element.
type xmlInstanceList struct {
	XMLName   xml.Name        `xml:"instances"`
	Instances []instance.Info `xml:"instance"`
}

type xmlMiniInstanceList struct {
	XMLName   xml.Name       `xml:"instances"`
	Instances []miniInstance `xml:"instance"`
}

type xmlCodec struct {
	name    string
	variant Variant
}

func (T xmlCodec) Name() string {
	return T.name
}

func (T xmlCodec) Format() Format {
	return FormatXML
}

func (T xmlCodec) Variant() Variant {
	return T.variant
}

func (T xmlCodec) ContentType() string {
	return "application/xml"
}

func (T xmlCodec) Encode(w io.Writer, v any) error {
	switch val := v.(type) {
	case []instance.Info:
		if T.variant == VariantMini {
			list := xmlMiniInstanceList{Instances: minify(val).([]miniInstance)}
			return xml.NewEncoder(w).Encode(list)
		}
		return xml.NewEncoder(w).Encode(xmlInstanceList{Instances: val})
	default:
		if T.variant == VariantMini {
			v = minify(v)
		}
		return xml.NewEncoder(w).Encode(v)
	}
}

func (T xmlCodec) Decode(r io.Reader, v any) error {
	switch out := v.(type) {
	case *[]instance.Info:
		var list xmlInstanceList
		if err := xml.NewDecoder(r).Decode(&list); err != nil {
			return err
		}
		*out = list.Instances
		return nil
	default:
		return xml.NewDecoder(r).Decode(v)
	}
}

var _ Codec = xmlCodec{}
