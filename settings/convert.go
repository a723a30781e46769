package settings

import (
	"fmt"
	"math/bits"

	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/document"
)

// Issue describes a document entry that was ignored while patching.
type Issue struct {
	Key string `json:"key"`
	// Index is the position inside a list value, or -1 for the value itself.
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	if i.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s", i.Key, i.Index, i.Reason)
	}
	return fmt.Sprintf("%s: %s", i.Key, i.Reason)
}

type patcher struct {
	obj    *document.Object
	logger zerolog.Logger
	issues []Issue
}

func (p *patcher) reject(key string, index int, reason string) {
	p.issues = append(p.issues, Issue{Key: key, Index: index, Reason: reason})
	event := p.logger.Warn().Str("key", key)
	if index >= 0 {
		event = event.Int("index", index)
	}
	event.Msg("settings: skipped " + reason)
}

func wrongKind(want string, got document.Value) string {
	return fmt.Sprintf("expected %s, got %s", want, got.Kind())
}

func (p *patcher) setString(key string, dst *string) {
	v, ok := p.obj.Lookup(key)
	if !ok {
		return
	}
	s, ok := v.AsString()
	if !ok {
		p.reject(key, -1, wrongKind("string", v))
		return
	}
	*dst = s
}

func (p *patcher) setBool(key string, dst *bool) {
	v, ok := p.obj.Lookup(key)
	if !ok {
		return
	}
	b, ok := v.AsBool()
	if !ok {
		p.reject(key, -1, wrongKind("bool", v))
		return
	}
	*dst = b
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

func widthOf[T unsigned]() int {
	return bits.Len64(uint64(^T(0)))
}

func uintValue[T unsigned](v document.Value) (T, bool) {
	n, ok := v.AsUint(widthOf[T]())
	if !ok {
		return 0, false
	}
	return T(n), true
}

func setUint[T unsigned](p *patcher, key string, dst *T) {
	v, ok := p.obj.Lookup(key)
	if !ok {
		return
	}
	n, ok := uintValue[T](v)
	if !ok {
		p.reject(key, -1, fmt.Sprintf("expected unsigned %d-bit integer, got %s", widthOf[T](), v.Kind()))
		return
	}
	*dst = n
}

func setEnum[T any](p *patcher, key string, dst *T, fromName func(string) T) {
	v, ok := p.obj.Lookup(key)
	if !ok {
		return
	}
	name, ok := v.AsString()
	if !ok {
		p.reject(key, -1, wrongKind("string", v))
		return
	}
	*dst = fromName(name)
}

// setList replaces *dst with the decoded elements of the array stored under
// key. A value that is not an array leaves *dst untouched; elements that fail
// to decode are dropped individually.
func setList[T any](p *patcher, key string, dst *[]T, decode func(document.Value) (T, string)) {
	v, ok := p.obj.Lookup(key)
	if !ok {
		return
	}
	elems, ok := v.AsArray()
	if !ok {
		p.reject(key, -1, wrongKind("array", v))
		return
	}
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		item, problem := decode(elem)
		if problem != "" {
			p.reject(key, i, problem)
			continue
		}
		out = append(out, item)
	}
	*dst = out
}

func nameDecoder[T any](fromName func(string) T) func(document.Value) (T, string) {
	return func(v document.Value) (T, string) {
		name, ok := v.AsString()
		if !ok {
			var zero T
			return zero, wrongKind("string", v)
		}
		return fromName(name), ""
	}
}

func decodeDeviceID(v document.Value) (uint16, string) {
	id, ok := uintValue[uint16](v)
	if !ok {
		return 0, "expected unsigned 16-bit device id, got " + v.Kind().String()
	}
	return id, ""
}

// decodeGatewayConfig accepts [deviceId, port, protocolVersion].
func decodeGatewayConfig(v document.Value) (GatewayConfig, string) {
	params, ok := v.AsArray()
	if !ok {
		return GatewayConfig{}, "gateway config " + wrongKind("array", v)
	}
	if len(params) != 3 {
		return GatewayConfig{}, fmt.Sprintf("gateway config expects 3 elements, got %d", len(params))
	}
	deviceID, ok := uintValue[uint16](params[0])
	if !ok {
		return GatewayConfig{}, "gateway config device id is not an unsigned 16-bit integer"
	}
	port, ok := uintValue[uint16](params[1])
	if !ok {
		return GatewayConfig{}, "gateway config port is not an unsigned 16-bit integer"
	}
	version, ok := uintValue[uint8](params[2])
	if !ok {
		return GatewayConfig{}, "gateway config protocol version is not an unsigned 8-bit integer"
	}
	return NewGatewayConfig(deviceID, port, version), ""
}

func encodeList[T any](items []T, encode func(T) document.Value) document.Value {
	elems := make([]document.Value, 0, len(items))
	for _, item := range items {
		elems = append(elems, encode(item))
	}
	return document.Array(elems...)
}

func encodeName[T fmt.Stringer](item T) document.Value {
	return document.String(item.String())
}

func encodeUint[T unsigned](item T) document.Value {
	return document.Uint(uint64(item))
}

func encodeGatewayConfig(cfg GatewayConfig) document.Value {
	return document.Array(
		document.Uint(uint64(cfg.DeviceID)),
		document.Uint(uint64(cfg.Port)),
		document.Uint(uint64(cfg.ProtocolVersion)),
	)
}
