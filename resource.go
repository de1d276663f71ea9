package aanet

// resource.go holds structs and methods that support scheduling of
// pipeline work on a resource of limited capacity: the per-node buffer
// slot.  A caller asks to acquire the slot and names an event handler to
// run when the grant happens; grants are immediate when the slot is free,
// otherwise the request waits its turn

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// A slotRequest remembers the continuation to schedule when the
// buffer slot is granted to the requester
type slotRequest struct {
	context   any                       // returned to the grant handler as its context
	data      any                       // returned to the grant handler as its data
	grantFunc evtm.EventHandlerFunction // call when the slot is acquired
}

// A bufferSlot is a one-capacity resource.  At most one holder at any
// virtual instant; acquisition requests queue first-come first-serve,
// except that priority requests (the ack fast path) go to the head
type bufferSlot struct {
	held    bool
	waiting []*slotRequest
}

// createBufferSlot is a constructor
func createBufferSlot() *bufferSlot {
	bs := new(bufferSlot)
	bs.held = false
	bs.waiting = []*slotRequest{}
	return bs
}

// acquire requests the slot.  If it is free the grant handler is scheduled
// immediately (zero virtual delay) and the slot is marked held; otherwise the
// request joins the waiting list.  The return is true when the grant was immediate
func (bs *bufferSlot) acquire(evtMgr *evtm.EventManager, context any, data any,
	grantFunc evtm.EventHandlerFunction, front bool) bool {

	req := &slotRequest{context: context, data: data, grantFunc: grantFunc}

	if bs.held {
		if front {
			bs.waiting = append([]*slotRequest{req}, bs.waiting...)
		} else {
			bs.waiting = append(bs.waiting, req)
		}
		return false
	}

	bs.held = true
	evtMgr.Schedule(req.context, req.data, req.grantFunc, vrtime.SecondsToTime(0.0))
	return true
}

// release gives up the slot.  If the waiting list is not empty its first
// member is granted the slot without the slot ever appearing free
func (bs *bufferSlot) release(evtMgr *evtm.EventManager) {
	if !bs.held {
		panic("release of buffer slot that is not held")
	}

	if len(bs.waiting) > 0 {
		req := bs.waiting[0]
		bs.waiting = bs.waiting[1:]
		evtMgr.Schedule(req.context, req.data, req.grantFunc, vrtime.SecondsToTime(0.0))
		return
	}
	bs.held = false
}

// inUse reports whether some packet currently holds the slot
func (bs *bufferSlot) inUse() bool {
	return bs.held
}
