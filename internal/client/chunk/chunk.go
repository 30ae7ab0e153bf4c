// Package chunk plans how a file is split for transfer.
package chunk

import (
	"errors"

	"github.com/docker/go-units"
)

const (
	DefaultChunkSize = 128 * units.MiB
	DefaultThreshold = 128 * units.MiB

	// MaxParts mirrors the object store's multipart limit.
	MaxParts = 10000
)

var ErrEmptyFile = errors.New("file is empty")

type Strategy int

const (
	Single Strategy = iota
	Multipart
)

func (s Strategy) String() string {
	if s == Multipart {
		return "multipart"
	}
	return "single"
}

// Range is one part of a multipart transfer. PartNumber starts at 1.
type Range struct {
	PartNumber int32
	Offset     int64
	Length     int64
}

func (r Range) End() int64 { return r.Offset + r.Length }

type Plan struct {
	Strategy Strategy
	Size     int64
	Ranges   []Range
}

// Planner holds the sizes a plan is computed from. Zero values fall back to
// the defaults.
type Planner struct {
	ChunkSize int64
	Threshold int64
}

func (p Planner) chunkSize() int64 {
	if p.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return p.ChunkSize
}

func (p Planner) threshold() int64 {
	if p.Threshold <= 0 {
		return DefaultThreshold
	}
	return p.Threshold
}

// Plan picks the strategy for size bytes. Files up to the threshold go as a
// single PUT with one range covering the whole file.
func (p Planner) Plan(size int64) (Plan, error) {
	if size <= 0 {
		return Plan{}, ErrEmptyFile
	}
	if size <= p.threshold() {
		return Plan{Strategy: Single, Size: size, Ranges: []Range{{PartNumber: 1, Length: size}}}, nil
	}
	ranges, err := p.Ranges(size)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Strategy: Multipart, Size: size, Ranges: ranges}, nil
}

// PartSize is the chunk size used for size bytes: the configured one, grown
// to ceil(size/MaxParts) when the file would otherwise need more parts.
func (p Planner) PartSize(size int64) int64 {
	return max(p.chunkSize(), (size+MaxParts-1)/MaxParts)
}

// Ranges splits [0, size) into consecutive PartSize pieces; the last one may
// be shorter.
func (p Planner) Ranges(size int64) ([]Range, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	cs := p.PartSize(size)
	n := (size + cs - 1) / cs

	ranges := make([]Range, 0, n)
	for i := int64(0); i < n; i++ {
		off := i * cs
		ranges = append(ranges, Range{
			PartNumber: int32(i + 1),
			Offset:     off,
			Length:     min(cs, size-off),
		})
	}
	return ranges, nil
}
