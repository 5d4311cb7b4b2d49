package codecs

import (
	"io"

	"gfx.cafe/gfx/regat/lib/reg/instance"
	"gfx.cafe/gfx/regat/lib/util/slices"
)

// WireVersion is the protocol generation of the party a payload is encoded
// for.
type WireVersion int

const (
	WireV1 WireVersion = 1
	WireV2 WireVersion = 2
)

// Converter priorities. Converters run in descending priority order;
// higher-priority converters see the record first.
const (
	PriorityNormal   = 0
	PriorityHigh     = 50
	PriorityVeryHigh = 100
)

// Converter rewrites an instance record on its way to the wire.
type Converter interface {
	Name() string
	Priority() int
	Convert(version WireVersion, info instance.Info) instance.Info
}

type Converters = slices.Sorted[Converter]

// RegisterConverter inserts c into the conversion chain, ordered by
// descending priority. Registering the same name twice is a no-op. Reports
// whether the converter was added.
func (T *Registry) RegisterConverter(c Converter) bool {
	T.mu.Lock()
	defer T.mu.Unlock()
	for _, existing := range T.converters {
		if existing.Name() == c.Name() {
			return false
		}
	}
	T.converters = T.converters.Insert(c, func(v Converter) int {
		return -v.Priority()
	})
	return true
}

// Converters returns a copy of the conversion chain in application order.
func (T *Registry) Converters() []Converter {
	T.mu.RLock()
	defer T.mu.RUnlock()
	out := make([]Converter, len(T.converters))
	copy(out, T.converters)
	return out
}

func (T *Registry) convert(version WireVersion, info instance.Info) instance.Info {
	T.mu.RLock()
	defer T.mu.RUnlock()
	for _, c := range T.converters {
		info = c.Convert(version, info)
	}
	return info
}

// EncodeInstance runs the conversion chain over info and writes it with
// codec.
func (T *Registry) EncodeInstance(codec Codec, version WireVersion, w io.Writer, info instance.Info) error {
	info = T.convert(version, info)
	return codec.Encode(w, &info)
}

// EncodeInstances is EncodeInstance over a whole record set.
func (T *Registry) EncodeInstances(codec Codec, version WireVersion, w io.Writer, infos []instance.Info) error {
	converted := make([]instance.Info, len(infos))
	for i, info := range infos {
		converted[i] = T.convert(version, info)
	}
	return codec.Encode(w, converted)
}

// DecodeInstance reads one instance record with codec, normalizing the
// status field.
func (T *Registry) DecodeInstance(codec Codec, r io.Reader) (instance.Info, error) {
	var info instance.Info
	if err := codec.Decode(r, &info); err != nil {
		return instance.Info{}, err
	}
	info.Status = instance.ParseStatus(string(info.Status))
	return info, nil
}

// DecodeInstances reads a record set with codec.
func (T *Registry) DecodeInstances(codec Codec, r io.Reader) ([]instance.Info, error) {
	var infos []instance.Info
	if err := codec.Decode(r, &infos); err != nil {
		return nil, err
	}
	for i := range infos {
		infos[i].Status = instance.ParseStatus(string(infos[i].Status))
	}
	return infos, nil
}
