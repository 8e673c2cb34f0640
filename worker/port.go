////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import "context"

// Port is one end of a bidirectional message bridge. On a Javascript build it
// wraps an object implementing the MessagePort API (a MessagePort, Worker, or
// DedicatedWorkerGlobalScope); on a native build, [NewPipe] provides an
// in-process implementation.
type Port interface {
	// PostMessage sends the message bytes to the other end of the port.
	PostMessage(message []byte) error

	// Listen returns a channel of all messages received on the port. Only one
	// listener may be registered per port. The channel is closed once the
	// context is cancelled.
	Listen(ctx context.Context) (<-chan []byte, error)
}
