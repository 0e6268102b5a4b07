package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want Status
	}{
		{KindInvalidArg, StatusInvalidParam},
		{KindTimeout, StatusTimeout},
		{KindBackend, StatusErrorBackend},
	}
	for _, c := range cases {
		got := NewError("comp", "op", c.kind, "msg").Kind.Status()
		assert.Equal(t, c.want, got)
	}
}

func TestWrapPreservesKind(t *testing.T) {
	inner := NewError("taskqueue", "sync", KindUnavailable, "marks exhausted")
	wrapped := Wrap("infersrv", "dispatch", inner)
	assert.Equal(t, KindUnavailable, wrapped.Kind)
	assert.True(t, errors.Is(wrapped, inner))
}

func TestIsKind(t *testing.T) {
	err := NewError("bufsurface", "request", KindUnavailable, "pool exhausted")
	assert.True(t, IsKind(err, KindUnavailable))
	assert.False(t, IsKind(err, KindTimeout))
}

func TestStatusOfNil(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
}
