package datapool

import "iter"

// Datapool is the type-erased view of an Iterable[T] or File that
// ScenarioManager's partitioning code needs: it only ever moves items
// through without inspecting them, so it can work against `any`.
type Datapool interface {
	Len() (int, error)
	Recyclable() bool
	Index() int
	SetIndex(int)
	Checkout(start int, stop *int) (iter.Seq[any], error)
}

type typedDatapool[T any] interface {
	Len() (int, error)
	Recyclable() bool
	Index() int
	SetIndex(int)
	Checkout(start int, stop *int) (iter.Seq[T], error)
}

type anyView[T any] struct {
	inner typedDatapool[T]
}

// AsDatapool erases the element type of an Iterable[T] or File, so
// heterogeneous datapools can sit in the same Journey slice.
func AsDatapool[T any](d typedDatapool[T]) Datapool {
	return anyView[T]{inner: d}
}

func (a anyView[T]) Len() (int, error)  { return a.inner.Len() }
func (a anyView[T]) Recyclable() bool   { return a.inner.Recyclable() }
func (a anyView[T]) Index() int         { return a.inner.Index() }
func (a anyView[T]) SetIndex(i int)     { a.inner.SetIndex(i) }
func (a anyView[T]) Checkout(start int, stop *int) (iter.Seq[any], error) {
	seq, err := a.inner.Checkout(start, stop)
	if err != nil {
		return nil, err
	}
	return func(yield func(any) bool) {
		seq(func(v T) bool { return yield(v) })
	}, nil
}
