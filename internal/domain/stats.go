package domain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// flagMean is a running mean over a nullable boolean or 0/1 column.
type flagMean struct {
	sum   float64
	count int
}

func (m *flagMean) add(v float64) {
	m.sum += v
	m.count++
}

func (m *flagMean) addBool(b *bool) {
	if b == nil {
		return
	}
	if *b {
		m.add(1)
		return
	}
	m.add(0)
}

func (m *flagMean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	return Ptr(m.sum / float64(m.count))
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return Ptr(stat.Mean(values, nil))
}

// sampleStd is the n-1 standard deviation, nil below two values.
func sampleStd(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	return Ptr(stat.StdDev(values, nil))
}

// nearestQuantile picks the element at round((n-1)*q) of sorted values.
func nearestQuantile(sorted []float64, q float64) *float64 {
	if len(sorted) == 0 {
		return nil
	}
	idx := int(math.Round(float64(len(sorted)-1) * q))
	return Ptr(sorted[idx])
}

// median averages the two middle elements of an even-length input.
func median(sorted []float64) *float64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	if n%2 == 1 {
		return Ptr(sorted[n/2])
	}
	return Ptr((sorted[n/2-1] + sorted[n/2]) / 2)
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
