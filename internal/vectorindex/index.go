// Package vectorindex provides an exact nearest-neighbour index over
// embedding vectors.
package vectorindex

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrNegativeLimit     = errors.New("limit must not be negative")
)

// Neighbor is one search hit: the position of the vector in build order and
// its squared Euclidean distance to the query.
type Neighbor struct {
	Position int
	Distance float32
}

// FlatIndex compares the query against every stored vector. It is immutable
// once built.
type FlatIndex struct {
	dims    int
	vectors [][]float32
}

// Build creates an index over vectors. All vectors must share one width. An
// index over no vectors is valid and never returns results.
func Build(vectors [][]float32) (*FlatIndex, error) {
	idx := &FlatIndex{vectors: make([][]float32, len(vectors))}
	if len(vectors) == 0 {
		return idx, nil
	}

	idx.dims = len(vectors[0])
	for i, v := range vectors {
		if len(v) != idx.dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), idx.dims)
		}
		idx.vectors[i] = append([]float32(nil), v...)
	}
	return idx, nil
}

// Len returns the number of indexed vectors.
func (idx *FlatIndex) Len() int {
	return len(idx.vectors)
}

// Dimensions returns the vector width, 0 for an empty index.
func (idx *FlatIndex) Dimensions() int {
	return idx.dims
}

// Search returns the k nearest vectors to query, closest first. Equal
// distances keep build order. At most min(k, Len()) neighbours are returned.
func (idx *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if k < 0 {
		return nil, ErrNegativeLimit
	}
	if len(idx.vectors) == 0 || k == 0 {
		return nil, nil
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dims)
	}

	results := make([]Neighbor, len(idx.vectors))
	for i, v := range idx.vectors {
		results[i] = Neighbor{Position: i, Distance: SquaredL2(query, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// SquaredL2 is the squared Euclidean distance between two equal-length vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
