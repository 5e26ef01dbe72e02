package observe

import (
	"testing"

	"github.com/matryer/is"
)

func TestValueVersionAndOrder(t *testing.T) {
	is := is.New(t)

	var v Value[int]
	_, version := v.Load()
	is.Equal(version, uint64(0))

	var got []int
	v.Subscribe(func(x int) { got = append(got, x) })

	for i := 1; i <= 3; i++ {
		v.Set(i * 10)
	}

	last, version := v.Load()
	is.Equal(last, 30)
	is.Equal(version, uint64(3))
	is.Equal(got, []int{10, 20, 30})
}

func TestValueCancel(t *testing.T) {
	is := is.New(t)

	var v Value[string]
	calls := 0
	cancel := v.Subscribe(func(string) { calls++ })
	other := 0
	v.Subscribe(func(string) { other++ })

	v.Set("a")
	cancel()
	v.Set("b")

	is.Equal(calls, 1)
	is.Equal(other, 2)
}

func TestValueReset(t *testing.T) {
	is := is.New(t)

	var v Value[float64]
	v.Set(1.5)
	v.Reset()

	x, version := v.Load()
	is.Equal(x, 0.0)
	is.Equal(version, uint64(1))
}
