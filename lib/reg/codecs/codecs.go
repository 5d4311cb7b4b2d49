package codecs

import (
	"io"
	"sort"
	"sync"

	"gfx.cafe/gfx/regat/lib/reg/config"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

type Variant string

const (
	VariantFull Variant = "full"
	VariantMini Variant = "mini"
)

// Codec is one serialization implementation, identified by name.
type Codec interface {
	Name() string
	Format() Format
	Variant() Variant
	ContentType() string

	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// Built-in codec names. The mini variants are fixed: they are never selected
// through configuration.
const (
	NameJSONFull = "json"
	NameJSONMini = "json-mini"
	NameXMLFull  = "xml"
	NameXMLMini  = "xml-mini"
)

// Fixed defaults used when a configured codec name is unknown.
var (
	JSONFull Codec = jsonCodec{name: NameJSONFull, variant: VariantFull}
	JSONMini Codec = jsonCodec{name: NameJSONMini, variant: VariantMini}
	XMLFull  Codec = xmlCodec{name: NameXMLFull, variant: VariantFull}
	XMLMini  Codec = xmlCodec{name: NameXMLMini, variant: VariantMini}
)

// Registry is the process's codec table. It is constructed once at
// initialization and handed to every consumer; registration is idempotent
// and there are no load-time side effects.
type Registry struct {
	mu         sync.RWMutex
	codecs     map[string]Codec
	converters Converters
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Codec),
	}
}

// Register adds codec to the table. Registering a name twice is a no-op;
// the first registration wins. Reports whether the codec was added.
func (T *Registry) Register(codec Codec) bool {
	T.mu.Lock()
	defer T.mu.Unlock()
	if _, ok := T.codecs[codec.Name()]; ok {
		return false
	}
	T.codecs[codec.Name()] = codec
	return true
}

// RegisterDefaults registers the built-in codecs. Safe to call any number of
// times; later calls are no-ops.
func (T *Registry) RegisterDefaults() {
	T.Register(JSONFull)
	T.Register(JSONMini)
	T.Register(XMLFull)
	T.Register(XMLMini)
}

func (T *Registry) Get(name string) (Codec, bool) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	codec, ok := T.codecs[name]
	return codec, ok
}

// Names returns the registered codec names, sorted.
func (T *Registry) Names() []string {
	T.mu.RLock()
	defer T.mu.RUnlock()
	names := make([]string, 0, len(T.codecs))
	for name := range T.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FullJSON resolves the full-format JSON codec named by the server config,
// silently falling back to the built-in default when the name is unknown.
func (T *Registry) FullJSON(server config.ServerConfig) Codec {
	if server.JSONCodecName != "" {
		if codec, ok := T.Get(server.JSONCodecName); ok {
			return codec
		}
	}
	return JSONFull
}

// FullXML resolves the full-format XML codec named by the server config,
// silently falling back to the built-in default when the name is unknown.
func (T *Registry) FullXML(server config.ServerConfig) Codec {
	if server.XMLCodecName != "" {
		if codec, ok := T.Get(server.XMLCodecName); ok {
			return codec
		}
	}
	return XMLFull
}

// MiniJSON returns the compact JSON codec. Not configurable.
func (T *Registry) MiniJSON() Codec {
	return JSONMini
}

// MiniXML returns the compact XML codec. Not configurable.
func (T *Registry) MiniXML() Codec {
	return XMLMini
}
