package shared

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type block struct {
	A, B, C int
	Label   string
}

func TestWrapper_ReadDoesNotBumpVersion(t *testing.T) {
	w := NewWrapper(block{A: 1})
	v := w.Version()

	for i := 0; i < 100; i++ {
		_ = w.Get().A
		_ = w.Snapshot()
	}

	assert.Equal(t, v, w.Version())
}

func TestWrapper_ModifyBumpsOnce(t *testing.T) {
	w := NewWrapper(block{})
	v := w.Version()

	w.Modify(func(d *block) {
		d.A = 1
		d.B = 2
		d.C = 3
		d.Label = "x"
	})

	assert.Equal(t, v+1, w.Version())
	assert.Equal(t, block{A: 1, B: 2, C: 3, Label: "x"}, w.Snapshot())
}

func TestWrapper_ModifyDoesNotTouchOldSnapshot(t *testing.T) {
	w := NewWrapper(block{A: 1})
	old := w.Get()

	w.Modify(func(d *block) { d.A = 2 })

	assert.Equal(t, 1, old.A)
	assert.Equal(t, 2, w.Get().A)
}

func TestChecker_UpdateNeeded(t *testing.T) {
	w := NewWrapper(block{})
	var c Checker

	require.True(t, w.UpdateNeeded(&c), "first check must report a change")
	require.False(t, w.UpdateNeeded(&c))
	require.False(t, w.UpdateNeeded(&c))

	w.Modify(func(d *block) { d.A++ })
	require.True(t, w.UpdateNeeded(&c))
	require.False(t, w.UpdateNeeded(&c))

	c.Reset()
	assert.True(t, w.UpdateNeeded(&c))
}

func TestChecker_IndependentReaders(t *testing.T) {
	w := NewWrapper(block{})
	var c1, c2 Checker

	assert.True(t, w.UpdateNeeded(&c1))
	w.Modify(func(d *block) { d.B = 5 })
	assert.True(t, w.UpdateNeeded(&c2))
	assert.True(t, w.UpdateNeeded(&c1))
	assert.Equal(t, c1.Seen(), c2.Seen())
}

func TestWrapper_ConcurrentReadersSeeWholeBlocks(t *testing.T) {
	w := NewWrapper(block{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var c Checker
			for {
				select {
				case <-stop:
					return
				default:
				}
				if w.UpdateNeeded(&c) {
					s := w.Snapshot()
					if s.A != s.B || s.B != s.C {
						t.Errorf("torn block: %+v", s)
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= 2000; i++ {
		w.Modify(func(d *block) {
			d.A = i
			d.B = i
			d.C = i
		})
	}
	close(stop)
	wg.Wait()
}
