package vectorindex

import (
	"errors"
	"math"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"diagonal", []float32{0, 0}, []float32{3, 4}, 25},
		{"negative", []float32{-1, -1}, []float32{1, 1}, 8},
		{"empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SquaredL2(tt.a, tt.b)
			if math.Abs(float64(got-tt.expected)) > 1e-6 {
				t.Errorf("SquaredL2(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		idx, err := Build(nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if idx.Len() != 0 || idx.Dimensions() != 0 {
			t.Errorf("Len/Dimensions = %d/%d, want 0/0", idx.Len(), idx.Dimensions())
		}
	})

	t.Run("rejects ragged vectors", func(t *testing.T) {
		_, err := Build([][]float32{{1, 0}, {1, 0, 0}})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("copies input", func(t *testing.T) {
		v := [][]float32{{1, 0}}
		idx, err := Build(v)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		v[0][0] = 100
		res, _ := idx.Search([]float32{1, 0}, 1)
		if res[0].Distance != 0 {
			t.Error("mutating the input changed the index")
		}
	})
}

func TestSearch(t *testing.T) {
	idx, err := Build([][]float32{
		{0, 0, 1},
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	t.Run("nearest first", func(t *testing.T) {
		res, err := idx.Search([]float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(res) != 4 {
			t.Fatalf("got %d results, want 4", len(res))
		}
		if res[0].Position != 1 || res[0].Distance != 0 {
			t.Errorf("top result = %+v, want position 1 at distance 0", res[0])
		}
		if res[1].Position != 2 {
			t.Errorf("second result = %+v, want position 2", res[1])
		}
		for i := 1; i < len(res); i++ {
			if res[i].Distance < res[i-1].Distance {
				t.Errorf("results not sorted at %d", i)
			}
		}
	})

	t.Run("respects k", func(t *testing.T) {
		res, err := idx.Search([]float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(res) != 2 {
			t.Errorf("got %d results, want 2", len(res))
		}
	})

	t.Run("ties keep build order", func(t *testing.T) {
		ring, err := Build([][]float32{{0, 1}, {1, 0}, {-1, 0}, {0, 2}})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		res, err := ring.Search([]float32{0, 0}, 4)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		for i, want := range []int{0, 1, 2, 3} {
			if res[i].Position != want {
				t.Errorf("result %d = position %d, want %d", i, res[i].Position, want)
			}
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := idx.Search([]float32{1, 0}, 2)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("negative k", func(t *testing.T) {
		if _, err := idx.Search([]float32{1, 0, 0}, -1); err != ErrNegativeLimit {
			t.Errorf("expected ErrNegativeLimit, got %v", err)
		}
	})

	t.Run("zero k", func(t *testing.T) {
		res, err := idx.Search([]float32{1, 0, 0}, 0)
		if err != nil || len(res) != 0 {
			t.Errorf("Search(k=0) = %v, %v", res, err)
		}
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx, _ := Build(nil)
	res, err := idx.Search([]float32{1, 2, 3}, 10)
	if err != nil {
		t.Fatalf("empty index should not error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("got %d results from empty index", len(res))
	}
}
