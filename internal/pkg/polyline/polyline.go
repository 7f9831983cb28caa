// Package polyline implements the encoded polyline algorithm format with a
// configurable coordinate precision. Valhalla emits precision 6, Google 5.
package polyline

import (
	"fmt"
	"math"
	"strings"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// DefaultPrecision is the precision used by the routing engine's shapes.
const DefaultPrecision = 6

const (
	minChunkByte = 63
	maxChunkByte = minChunkByte + 0x3f
	chunkBits    = 5
	chunkMask    = 0x1f
	continueBit  = 0x20
)

// LatLng is a decoded coordinate in the format's native (lat, lon) order.
type LatLng struct {
	Lat float64
	Lng float64
}

// Latin1Bytes reinterprets s as single-byte code points. Upstreams emit the
// shape as raw bytes, so any rune above U+00FF means the text was mangled.
func Latin1Bytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	offset := 0
	for _, r := range s {
		if r > 0xff {
			return nil, &domain.EncodingError{Offset: offset, Rune: r}
		}
		out = append(out, byte(r))
		offset++
	}
	return out, nil
}

// Decode decodes an encoded polyline at the given precision.
func Decode(encoded string, precision int) ([]LatLng, error) {
	raw, err := Latin1Bytes(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw, precision)
}

// DecodeBytes decodes a polyline that is already in byte form.
func DecodeBytes(raw []byte, precision int) ([]LatLng, error) {
	if precision < 0 || precision > 15 {
		return nil, &domain.DecodeError{Offset: 0, Reason: "precision must be between 0 and 15"}
	}
	factor := math.Pow10(precision)

	points := make([]LatLng, 0, len(raw)/4)
	var lat, lng int64
	i := 0
	for i < len(raw) {
		dLat, next, err := decodeValue(raw, i)
		if err != nil {
			return nil, err
		}
		if next >= len(raw) {
			return nil, &domain.DecodeError{Offset: next, Reason: "truncated coordinate pair: missing longitude"}
		}
		dLng, next, err := decodeValue(raw, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lng += dLng
		points = append(points, LatLng{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}
	return points, nil
}

// decodeValue reads one zig-zag encoded delta starting at raw[i].
func decodeValue(raw []byte, i int) (int64, int, error) {
	var result uint64
	var shift uint
	for {
		if i >= len(raw) {
			return 0, i, &domain.DecodeError{Offset: i, Reason: "truncated delta sequence"}
		}
		b := raw[i]
		if b < minChunkByte || b > maxChunkByte {
			return 0, i, &domain.DecodeError{Offset: i, Reason: fmt.Sprintf("invalid character 0x%02x", b)}
		}
		if shift > 60 {
			return 0, i, &domain.DecodeError{Offset: i, Reason: "delta overflows 64 bits"}
		}
		chunk := uint64(b) - minChunkByte
		result |= (chunk & chunkMask) << shift
		shift += chunkBits
		i++
		if chunk&continueBit == 0 {
			break
		}
	}
	if result&1 != 0 {
		return ^int64(result >> 1), i, nil
	}
	return int64(result >> 1), i, nil
}

// Encode encodes points at the given precision. It is the inverse of Decode
// for any polyline produced by a conforming encoder.
func Encode(points []LatLng, precision int) string {
	factor := math.Pow10(precision)
	var sb strings.Builder
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * factor))
		lng := int64(math.Round(p.Lng * factor))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= continueBit {
		sb.WriteByte(byte((continueBit | (u & chunkMask)) + minChunkByte))
		u >>= chunkBits
	}
	sb.WriteByte(byte(u + minChunkByte))
}

// ToLonLat reorders decoded points into [lon, lat] pairs (GeoJSON order).
func ToLonLat(points []LatLng) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Lng, p.Lat}
	}
	return out
}
