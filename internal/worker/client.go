package worker

import (
	"context"

	"github.com/google/uuid"

	"vantage/internal/matching"
)

// Client is a cheap, cloneable handle over a worker's command channel.
// Every method is non-blocking from the caller's perspective: it either
// queues the command and waits for the worker's reply, or is rejected with
// ErrQueueFull immediately if the command channel is saturated.
type Client struct {
	cmdCh chan<- command
}

// Submit enqueues an order for processing and waits for the result, or for
// ctx to be cancelled. Cancelling ctx does not cancel the engine-side work;
// it only stops the caller from waiting on it.
func (c *Client) Submit(ctx context.Context, order matching.Order) (*matching.ProcessResult, error) {
	reply := make(chan submitReply, 1)
	if err := c.enqueue(submitCommand{order: order, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests removal of a resting order.
func (c *Client) Cancel(ctx context.Context, orderID uuid.UUID) (*matching.Order, error) {
	reply := make(chan cancelReply, 1)
	if err := c.enqueue(cancelCommand{orderID: orderID, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.order, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot requests a depth projection limited to the given number of price
// levels per side (0 means unlimited).
func (c *Client) Snapshot(ctx context.Context, levels int) (matching.DepthSnapshot, error) {
	reply := make(chan snapshotReply, 1)
	if err := c.enqueue(snapshotCommand{levels: levels, reply: reply}); err != nil {
		return matching.DepthSnapshot{}, err
	}
	select {
	case r := <-reply:
		return r.snapshot, nil
	case <-ctx.Done():
		return matching.DepthSnapshot{}, ctx.Err()
	}
}

// Halt stops the instrument from accepting new Submits until Resume.
func (c *Client) Halt(ctx context.Context) error {
	return c.fireAndWait(ctx, func(reply chan struct{}) command {
		return haltCommand{reply: reply}
	})
}

// Resume re-enables Submit processing after a Halt.
func (c *Client) Resume(ctx context.Context) error {
	return c.fireAndWait(ctx, func(reply chan struct{}) command {
		return resumeCommand{reply: reply}
	})
}

// Shutdown stops the worker's loop after draining commands already queued
// ahead of it.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.fireAndWait(ctx, func(reply chan struct{}) command {
		return shutdownCommand{reply: reply}
	})
}

func (c *Client) fireAndWait(ctx context.Context, build func(chan struct{}) command) error {
	reply := make(chan struct{})
	if err := c.enqueue(build(reply)); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue attempts a non-blocking send; a saturated command channel is
// reported as ErrQueueFull rather than silently blocking the caller.
func (c *Client) enqueue(cmd command) error {
	select {
	case c.cmdCh <- cmd:
		return nil
	default:
		return matching.ErrQueueFull
	}
}
