////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aquilax/truncate"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// ThreadReceptionCallback is called with a message received from the main
// thread. Any bytes returned are sent as a response back to the main thread.
// Any returned errors are printed to the log.
type ThreadReceptionCallback func(data []byte) ([]byte, error)

// ThreadManager queues incoming messages from the main thread and handles
// them based on their tag.
type ThreadManager struct {
	// The underlying port that sends and receives messages.
	p Port

	// callbacks are a list of callbacks to handle messages that come from the
	// main thread keyed on the message tag.
	callbacks map[Tag]ThreadReceptionCallback

	// cancel stops the processing thread and releases the port listener.
	cancel context.CancelFunc

	// name describes the worker. It is used for debugging and logging.
	name string

	Params

	mux sync.Mutex
}

// NewThreadManager initialises a new ThreadManager over the given port and
// starts processing received messages. Callbacks registered after messages
// have begun arriving may miss early messages; register all callbacks before
// calling [ThreadManager.SignalReady].
func NewThreadManager(p Port, name string, params Params) (*ThreadManager, error) {
	tm := &ThreadManager{
		p:         p,
		callbacks: make(map[Tag]ThreadReceptionCallback),
		name:      name,
		Params:    params,
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := p.Listen(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	tm.cancel = cancel

	// Start thread to process messages from the main thread
	go tm.processThread(events)

	return tm, nil
}

// Stop closes the processing thread and releases the port listener.
func (tm *ThreadManager) Stop() {
	tm.cancel()
}

// processThread processes received messages sequentially.
func (tm *ThreadManager) processThread(events <-chan []byte) {
	jww.INFO.Printf("[WW] [%s] Starting worker process thread.", tm.name)
	for data := range events {
		if err := tm.processReceivedMessage(data); err != nil {
			jww.ERROR.Printf("[WW] [%s] Failed to process message received "+
				"from main thread: %+v", tm.name, err)
		}
	}
	jww.INFO.Printf("[WW] [%s] Quitting worker process thread.", tm.name)
}

// SignalReady sends a signal to the main thread indicating that the worker is
// ready. Once the main thread receives this, it will initiate communication.
// Therefore, this should only be run once all callbacks are registered.
func (tm *ThreadManager) SignalReady() {
	if err := tm.sendMessage(ReadyTag, nil); err != nil {
		jww.FATAL.Panicf(
			"[WW] [%s] Worker failed to signal ready: %+v", tm.name, err)
	}
}

// SendMessage sends a message to the main thread for the given tag. No
// response is expected.
func (tm *ThreadManager) SendMessage(tag Tag, data []byte) error {
	return tm.sendMessage(tag, data)
}

// sendMessage packages the data into a Message with the tag and sends it to
// the main thread.
func (tm *ThreadManager) sendMessage(tag Tag, data []byte) error {
	if tm.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Worker sending message for %q: %s",
			tm.name, tag, truncate.Truncate(
				fmt.Sprintf("%q", data), 64, "...", truncate.PositionMiddle))
	}

	msg := Message{
		Tag:      tag,
		ID:       initID,
		Response: false,
		Data:     data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Errorf(
			"worker failed to marshal %T for %q going to main: %+v",
			msg, tag, err)
	}

	return tm.p.PostMessage(payload)
}

// sendResponse sends a reply to the main thread with the given tag and ID.
func (tm *ThreadManager) sendResponse(tag Tag, id uint64, data []byte) error {
	if tm.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Worker sending reply for %q and ID %d: %s",
			tm.name, tag, id, truncate.Truncate(
				fmt.Sprintf("%q", data), 64, "...", truncate.PositionMiddle))
	}

	msg := Message{
		Tag:      tag,
		ID:       id,
		Response: true,
		Data:     data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Errorf(
			"worker failed to marshal %T for %q and ID %d going to main: %+v",
			msg, tag, id, err)
	}

	return tm.p.PostMessage(payload)
}

// processReceivedMessage processes the message received from the main thread
// and calls the associated callback. If the registered callback returns a
// response, it is sent to the main thread. This function blocks until the
// callback returns.
func (tm *ThreadManager) processReceivedMessage(data []byte) error {
	var msg Message
	err := json.Unmarshal(data, &msg)
	if err != nil {
		return err
	}

	if tm.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Worker received message for %q and ID %d: %s",
			tm.name, msg.Tag, msg.ID, truncate.Truncate(
				fmt.Sprintf("%q", data), 64, "...", truncate.PositionMiddle))
	}

	tm.mux.Lock()
	callback, exists := tm.callbacks[msg.Tag]
	tm.mux.Unlock()
	if !exists {
		return errors.Errorf("no callback found for tag %q", msg.Tag)
	}

	// Call callback and send response with its return
	response, err := callback(msg.Data)
	if err != nil {
		return errors.Errorf("callback for %q and ID %d returned an error: %+v",
			msg.Tag, msg.ID, err)
	}
	if response != nil {
		return tm.sendResponse(msg.Tag, msg.ID, response)
	}

	return nil
}

// RegisterCallback registers the callback with the given tag overwriting any
// previous registered callbacks with the same tag. This function is thread
// safe.
//
// If the callback returns anything but nil, it will be returned as a
// response.
func (tm *ThreadManager) RegisterCallback(
	tag Tag, receptionCallback ThreadReceptionCallback) {
	jww.DEBUG.Printf(
		"[WW] [%s] Worker registering callback for tag %q", tm.name, tag)
	tm.mux.Lock()
	tm.callbacks[tag] = receptionCallback
	tm.mux.Unlock()
}
