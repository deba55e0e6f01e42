package extension

import (
	"context"
	"testing"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/ipf/ipftest"
	"github.com/jpl-au/ipfa/internal/session"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

// testExtension is a minimal Extension implementation for testing.
type testExtension struct {
	name string
}

func (e testExtension) Name() string               { return e.name }
func (e testExtension) Commands() []*cobra.Command { return nil }

func TestRegister_PanicOnDuplicate(t *testing.T) {
	name := "test-duplicate-panic"
	Register(testExtension{name: name})

	assert.Panics(t, func() { Register(testExtension{name: name}) })
}

func TestRegister_Order(t *testing.T) {
	Register(testExtension{name: "test-order-a"})
	Register(testExtension{name: "test-order-b"})

	names := Names()
	ia, ib := -1, -1
	for i, n := range names {
		switch n {
		case "test-order-a":
			ia = i
		case "test-order-b":
			ib = i
		}
	}
	assert.GreaterOrEqual(t, ia, 0)
	assert.Greater(t, ib, ia)
	assert.Len(t, All(), len(names))
	assert.Equal(t, "test-order-a", Get("test-order-a").Name())
	assert.Nil(t, Get("test-order-missing"))
}

func TestPinSession(t *testing.T) {
	srv := ipftest.New(t,
		ipf.Snapshot{ID: "s1", State: "loaded", End: 100},
		ipf.Snapshot{ID: "s2", State: "loaded", End: 200},
	)

	t.Run("alias resolved", func(t *testing.T) {
		c := NewContext(srv.Client(t), session.New(ipf.AliasPrev), nil, nil)
		PinSession(context.Background(), c)
		assert.Equal(t, "s1", c.Session().Snapshot())
	})

	t.Run("concrete id untouched", func(t *testing.T) {
		c := NewContext(srv.Client(t), session.New("s2"), nil, nil)
		PinSession(context.Background(), c)
		assert.Equal(t, "s2", c.Session().Snapshot())
	})

	t.Run("unresolvable alias kept", func(t *testing.T) {
		c := NewContext(srv.Client(t), session.New(ipf.AliasLastLocked), nil, nil)
		PinSession(context.Background(), c)
		assert.Equal(t, ipf.AliasLastLocked, c.Session().Snapshot())
	})
}
