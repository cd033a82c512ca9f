package core_test

import (
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/toejough/deepstub/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// store is the dependency the tests stub.
type store interface {
	Get(id int) (string, error)
	Put(id int, value string) error
	Size() int
}

// realStore is a real implementation for partial stubs.
type realStore struct {
	values map[int]string
	puts   int
}

func (r *realStore) Get(id int) (string, error) {
	value, ok := r.values[id]
	if !ok {
		return "", errNotFound
	}

	return value, nil
}

func (r *realStore) Put(id int, value string) error {
	r.puts++
	r.values[id] = value

	return nil
}

func (r *realStore) Size() int {
	return len(r.values)
}

// stubStore is a hand-written stand-in in the shape stubgen generates.
type stubStore struct {
	proxy *core.Proxy
	real  store
}

func newStubStore(ctx *core.Context) *stubStore {
	s := &stubStore{}
	s.proxy = core.NewProxy(ctx, s)

	return s
}

func wrapStubStore(ctx *core.Context, real store) *stubStore {
	s := &stubStore{real: real}
	s.proxy = core.WrapProxy(ctx, s)

	return s
}

func (s *stubStore) Get(id int) (string, error) {
	out := s.proxy.Call(getMethod, []any{id}, func() ([]any, error) {
		r0, err := s.real.Get(id)
		return []any{r0}, err
	})

	return core.Value[string](out, 0), core.Err(out, 1)
}

func (s *stubStore) Put(id int, value string) error {
	out := s.proxy.Call(putMethod, []any{id, value}, func() ([]any, error) {
		return nil, s.real.Put(id, value)
	})

	return core.Err(out, 0)
}

func (s *stubStore) Size() int {
	out := s.proxy.Call(sizeMethod, []any{}, func() ([]any, error) {
		return []any{s.real.Size()}, nil
	})
	core.Raise(out)

	return core.Value[int](out, 0)
}

func (s *stubStore) Intercepted() *core.Proxy {
	return s.proxy
}

// unexported variables.
var (
	errNotFound = errors.New("not found")
	errBoom     = errors.New("boom")

	//nolint:gochecknoglobals // method identities of the stubbed interface
	getMethod = core.MethodOf(store.Get)
	//nolint:gochecknoglobals // method identities of the stubbed interface
	putMethod = core.MethodOf(store.Put)
	//nolint:gochecknoglobals // method identities of the stubbed interface
	sizeMethod = core.MethodOf(store.Size)
)
