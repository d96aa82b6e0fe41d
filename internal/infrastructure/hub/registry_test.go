package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberRegistry_RegisterUnregister(t *testing.T) {
	r := newSubscriberRegistry()
	a := &Observer{id: "a", key: "k"}
	b := &Observer{id: "b", key: "k"}

	assert.Equal(t, 1, r.register("k", a))
	assert.Equal(t, 2, r.register("k", b))
	assert.Equal(t, 2, r.register("k", a), "duplicate registration is a no-op")
	assert.Equal(t, []*Observer{a, b}, r.list("k"))

	remaining, ok := r.unregister("k", a)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	_, ok = r.unregister("k", a)
	assert.False(t, ok)

	remaining, ok = r.unregister("k", b)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Empty(t, r.list("k"))
	assert.Empty(t, r.keys(), "empty sets are deleted")
}

func TestSubscriberRegistry_ListIsSnapshot(t *testing.T) {
	r := newSubscriberRegistry()
	a := &Observer{id: "a"}
	b := &Observer{id: "b"}
	c := &Observer{id: "c"}
	r.register("k", a)
	r.register("k", b)

	snapshot := r.list("k")
	r.unregister("k", a)
	r.register("k", c)

	assert.Equal(t, []*Observer{a, b}, snapshot)
	assert.Equal(t, []*Observer{b, c}, r.list("k"))
}

func TestSubscriberRegistry_Reset(t *testing.T) {
	r := newSubscriberRegistry()
	a := &Observer{id: "a"}
	b := &Observer{id: "b"}
	c := &Observer{id: "c"}
	r.register("k1", a)
	r.register("k1", b)
	r.register("k2", c)

	removed := r.reset("k1", "missing")
	assert.ElementsMatch(t, []*Observer{a, b}, removed)
	assert.Equal(t, []string{"k2"}, r.keys())

	removed = r.reset()
	assert.Equal(t, []*Observer{c}, removed)
	assert.Equal(t, 0, r.count("k2"))
}

func TestConnectionRegistry_SingleConnectionPerKey(t *testing.T) {
	r := newConnectionRegistry()
	first := newSharedConn("k", &fakeTransport{key: "k"}, Options{}, DefaultConfig())
	second := newSharedConn("k", &fakeTransport{key: "k"}, Options{}, DefaultConfig())

	require.NoError(t, r.set("k", first))
	assert.ErrorIs(t, r.set("k", second), ErrConnectionExists)

	got, ok := r.get("k")
	require.True(t, ok)
	assert.Same(t, first, got)

	assert.False(t, r.deleteIf("k", second))
	assert.True(t, r.deleteIf("k", first))
	_, ok = r.get("k")
	assert.False(t, ok)
}

func TestConnectionRegistry_ResetShutsDown(t *testing.T) {
	r := newConnectionRegistry()
	t1 := &fakeTransport{key: "k1"}
	t2 := &fakeTransport{key: "k2"}
	require.NoError(t, r.set("k1", newSharedConn("k1", t1, Options{}, DefaultConfig())))
	require.NoError(t, r.set("k2", newSharedConn("k2", t2, Options{}, DefaultConfig())))

	removed := r.reset("k1")
	require.Len(t, removed, 1)
	assert.Equal(t, 1, t1.closes())
	assert.Equal(t, 0, t2.closes())
	assert.True(t, removed[0].detached)
	assert.Equal(t, ReadyStateClosed, removed[0].readyState())
	assert.Equal(t, []string{"k2"}, r.keys())

	r.reset()
	assert.Equal(t, 1, t2.closes())
	assert.Equal(t, 0, r.size())
}

func TestSharedConn_Liveness(t *testing.T) {
	cfg := DefaultConfig()
	hb := &HeartbeatOptions{Interval: 5}

	duplex := newSharedConn("k", &fakeTransport{}, Options{Heartbeat: hb}, cfg)
	assert.True(t, duplex.liveness)
	assert.Equal(t, DefaultHeartbeatTimeout, duplex.heartbeat.Timeout)
	assert.Equal(t, ReadyStateConnecting, duplex.readyState())

	receiveOnly := newSharedConn("k", &fakeTransport{receiveOnly: true}, Options{Heartbeat: hb}, cfg)
	assert.False(t, receiveOnly.liveness)

	plain := newSharedConn("k", &fakeTransport{}, Options{}, cfg)
	assert.False(t, plain.liveness)
}
