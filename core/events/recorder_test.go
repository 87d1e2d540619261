package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

func TestRecorderKeepsNewestEvents(t *testing.T) {
	rec := NewRecorder(2)
	rec.Emit(&types.Event{Type: "a"})
	rec.Emit(&types.Event{Type: "b"})
	rec.Emit(&types.Event{Type: "c"})

	recent := rec.Recent(0)
	require.Len(t, recent, 2)
	require.Equal(t, "b", recent[0].Type)
	require.Equal(t, "c", recent[1].Type)

	last := rec.Recent(1)
	require.Len(t, last, 1)
	require.Equal(t, "c", last[0].Type)
}

func TestRecorderSubscribe(t *testing.T) {
	rec := NewRecorder(0)
	ch, cancel := rec.Subscribe(1)

	rec.Emit(Transfer{From: crypto.Address{1}, To: crypto.Address{2}, Lamports: 7})
	evt := <-ch
	require.Equal(t, TypeTransfer, evt.Type)
	require.Equal(t, "7", evt.Attributes["lamports"])

	cancel()
	_, open := <-ch
	require.False(t, open)
	cancel()
	rec.Emit(&types.Event{Type: "after-cancel"})
}

func TestFanoutSkipsNil(t *testing.T) {
	a := NewRecorder(0)
	b := NewRecorder(0)
	Fanout{a, nil, b, NoopEmitter{}}.Emit(&types.Event{Type: "x"})
	require.Len(t, a.Recent(0), 1)
	require.Len(t, b.Recent(0), 1)
}
