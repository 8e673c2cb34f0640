////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import "context"

// pipeBufferSize is the number of messages that can be queued on each
// direction of a pipe before senders block.
const pipeBufferSize = 100

// NewPipe returns two connected in-process Ports. A message posted on one end
// is received by the listener on the other end. It stands in for the
// postMessage boundary in native builds, where both halves of the bridge run
// in the same process.
func NewPipe() (Port, Port) {
	ab := make(chan []byte, pipeBufferSize)
	ba := make(chan []byte, pipeBufferSize)
	return &pipePort{in: ba, out: ab}, &pipePort{in: ab, out: ba}
}

// pipePort is one end of an in-process pipe.
type pipePort struct {
	in  chan []byte
	out chan []byte
}

// PostMessage queues the message for the other end of the pipe.
func (p *pipePort) PostMessage(message []byte) error {
	p.out <- message
	return nil
}

// Listen forwards queued messages to the returned channel until the context
// is cancelled.
func (p *pipePort) Listen(ctx context.Context) (<-chan []byte, error) {
	events := make(chan []byte)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case message := <-p.in:
				select {
				case events <- message:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
