package matching

import (
	"github.com/huandu/skiplist"
)

// triggerSet holds Stop/StopLimit orders that have not yet crossed their
// trigger price, ordered by trigger price so releases happen in
// trigger-price order, then ascending sequence id within a price.
type triggerSet struct {
	bySide map[Side]*skiplist.SkipList
}

func newTriggerSet() *triggerSet {
	return &triggerSet{
		bySide: map[Side]*skiplist.SkipList{
			Bid: skiplist.New(skiplist.Int64),
			Ask: skiplist.New(skiplist.Int64),
		},
	}
}

// add places an order in the trigger set keyed by its trigger price. Orders
// sharing a price are kept in ascending SequenceID order.
func (t *triggerSet) add(order *Order) {
	list := t.bySide[order.Side]
	key := *order.TriggerPrice
	elem := list.Get(key)
	if elem == nil {
		list.Set(key, []*Order{order})
		return
	}
	bucket := elem.Value.([]*Order)
	bucket = append(bucket, order)
	list.Set(key, bucket)
}

// releasable returns, in release order, the Stop/StopLimit orders on `side`
// whose trigger price has been crossed by `reference`. A Bid-side stop
// triggers when reference rises to or above its trigger price; an Ask-side
// stop triggers when reference falls to or below it.
func (t *triggerSet) releasable(side Side, reference int64) []*Order {
	list := t.bySide[side]
	var out []*Order

	if side == Bid {
		for elem := list.Front(); elem != nil; elem = elem.Next() {
			price := elem.Key().(int64)
			if price > reference {
				break
			}
			out = append(out, elem.Value.([]*Order)...)
		}
	} else {
		for elem := list.Back(); elem != nil; elem = elem.Prev() {
			price := elem.Key().(int64)
			if price < reference {
				break
			}
			out = append(out, elem.Value.([]*Order)...)
		}
	}

	for _, o := range out {
		list.Remove(*o.TriggerPrice)
	}
	return out
}

func (t *triggerSet) remove(order *Order) bool {
	list := t.bySide[order.Side]
	elem := list.Get(*order.TriggerPrice)
	if elem == nil {
		return false
	}
	bucket := elem.Value.([]*Order)
	for i, o := range bucket {
		if o.ID == order.ID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				list.Remove(*order.TriggerPrice)
			} else {
				list.Set(*order.TriggerPrice, bucket)
			}
			return true
		}
	}
	return false
}
