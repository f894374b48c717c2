package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/presale/core/types"
)

func receipt(seq uint64, ok bool) *types.Receipt {
	r := &types.Receipt{Seq: seq, Method: "buy"}
	if ok {
		r.Status = types.ReceiptStatusSuccessful
	}
	return r
}

func TestFeedFiltersByType(t *testing.T) {
	f := NewFeed(4)
	committed := f.Subscribe(EventCallCommitted)
	all := f.Subscribe()
	assert.Equal(t, 2, f.SubscriberCount(EventCallCommitted))
	assert.Equal(t, 1, f.SubscriberCount(EventCallReverted))

	f.Publish(receipt(1, false))
	f.Publish(receipt(2, true))

	ev := <-committed.Chan()
	assert.Equal(t, uint64(2), ev.Receipt.Seq)
	assert.Len(t, committed.Chan(), 0)

	assert.Equal(t, EventCallReverted, (<-all.Chan()).Type)
	assert.Equal(t, EventCallCommitted, (<-all.Chan()).Type)
}

func TestFeedDropsOnFullBuffer(t *testing.T) {
	f := NewFeed(1)
	sub := f.Subscribe()
	f.Publish(receipt(1, true))
	f.Publish(receipt(2, true))
	assert.Equal(t, uint64(1), f.Dropped())
	assert.Equal(t, uint64(1), (<-sub.Chan()).Receipt.Seq)
}

func TestFeedUnsubscribe(t *testing.T) {
	f := NewFeed(1)
	sub := f.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()
	_, open := <-sub.Chan()
	assert.False(t, open)
	assert.Zero(t, f.SubscriberCount(EventCallCommitted))
	f.Publish(receipt(1, true))
	assert.Zero(t, f.Dropped())
}

func TestFeedClose(t *testing.T) {
	f := NewFeed(1)
	sub := f.Subscribe()
	f.Close()
	f.Close()
	_, open := <-sub.Chan()
	require.False(t, open)

	late := f.Subscribe()
	_, open = <-late.Chan()
	assert.False(t, open, "subscriptions after close are closed")
	f.Publish(receipt(1, true))
}
