/*
Package smpp implements an SMPP v3.4 transceiver client session.

A session binds to an SMSC with bind_transceiver, submits short messages with
submit_sm, acknowledges every deliver_sm, correlates delivery receipts with the
messages it submitted, and ends with the unbind handshake.

# Session lifecycle

	Idle -> Connecting -> AwaitingBindResp -> Bound -> AwaitingUnbindResp -> Closed

Any state may move to Closed directly. Closed is terminal and records a CloseReason;
Session.Outcome classifies it.

# Usage

	creds, err := smpp.NewCredentials("acme", "smsc.example.com:2775", "esme01", "secret", "")
	if err != nil {
		return err
	}

	sess, err := smpp.Connect(ctx, creds, smpp.WithLogger(l), smpp.WithWindowSize(20))
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	h, err := sess.Submit(ctx, smpp.OutboundMessage{Source: "ACME", Destination: "886912345678", Content: "hello"})
	if err != nil {
		return err
	}

	res, err := h.Result(ctx)

Run wraps the whole flow for one-shot senders.

# Concurrency

Submit, Close and the accessors are safe for concurrent use. Inbound frames are handled
on a single dispatcher goroutine; outbound frames are written by a single sender
goroutine. Submit never waits for the response: the number of submit_sm awaiting a
response is bounded by WithWindowSize, and Submit blocks while the window is full.
*/
package smpp
