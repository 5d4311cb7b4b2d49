package instance

import (
	"encoding/xml"
	"sort"
)

// Metadata is a string map that also knows how to round-trip through XML,
// which cannot encode maps directly. Entries are emitted sorted by name so
// encodings are deterministic.
type Metadata map[string]string

type metadataEntry struct {
	XMLName xml.Name `xml:"entry"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:",chardata"`
}

func (T Metadata) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(T) == 0 {
		return nil
	}

	names := make([]string, 0, len(T))
	for name := range T {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, name := range names {
		entry := metadataEntry{Name: name, Value: T[name]}
		if err := e.Encode(entry); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (T *Metadata) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if *T == nil {
		*T = make(Metadata)
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var entry metadataEntry
			if err := d.DecodeElement(&entry, &t); err != nil {
				return err
			}
			(*T)[entry.Name] = entry.Value
		case xml.EndElement:
			return nil
		}
	}
}

var _ xml.Marshaler = Metadata(nil)
var _ xml.Unmarshaler = (*Metadata)(nil)
