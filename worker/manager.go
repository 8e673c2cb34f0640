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
	"time"

	"github.com/aquilax/truncate"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// SenderCallback is called when the sender of a message gets a response. The
// message is the response from the receiver.
type SenderCallback func(message []byte)

// ReceiverCallback is called when receiving a message from the worker that is
// not a response. Reply can optionally be used to send a response back,
// triggering the worker's [SenderCallback].
type ReceiverCallback func(message []byte, reply func(message []byte))

// Manager manages the sending and receiving of messages to a remote execution
// context (e.g., a Worker or the other end of a pipe).
type Manager struct {
	// The underlying port that sends and receives messages.
	p Port

	// senderCallbacks are a list of SenderCallback that are called when
	// receiving a response from the worker. The uint64 is a unique ID that
	// connects each received reply to its original message.
	senderCallbacks map[Tag]map[uint64]SenderCallback

	// receiverCallbacks are a list of ReceiverCallback that are called when
	// receiving a message from the worker.
	receiverCallbacks map[Tag]ReceiverCallback

	// responseIDs is a list of the newest ID to assign to each senderCallbacks
	// when registered. The IDs are used to connect a reply from the worker to
	// the original message sent by the main thread.
	responseIDs map[Tag]uint64

	// ready is closed once the worker signals that its callbacks are
	// registered and it can receive messages.
	ready     chan struct{}
	readyOnce sync.Once

	// cancel stops the message reception thread and releases the port
	// listener.
	cancel context.CancelFunc

	// name describes the worker. It is used for debugging and logging.
	name string

	Params

	mux sync.Mutex
}

// NewPortManager generates a new Manager over the given port and starts its
// message reception thread. Use [Manager.WaitForReady] to block until the
// other end has signalled it is ready.
func NewPortManager(p Port, name string, params Params) (*Manager, error) {
	m := initManager(name, params)
	m.p = p

	m.RegisterCallback(ReadyTag, func([]byte, func([]byte)) {
		m.readyOnce.Do(func() { close(m.ready) })
	})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := p.Listen(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	m.cancel = cancel

	// Start thread to process messages from the worker
	go m.messageReception(events)

	return m, nil
}

// initManager initialises a new empty Manager.
func initManager(name string, params Params) *Manager {
	return &Manager{
		senderCallbacks:   make(map[Tag]map[uint64]SenderCallback),
		receiverCallbacks: make(map[Tag]ReceiverCallback),
		responseIDs:       make(map[Tag]uint64),
		ready:             make(chan struct{}),
		name:              name,
		Params:            params,
	}
}

// WaitForReady blocks until the worker sends its ready signal or the timeout
// is reached. It returns immediately if the signal has already arrived.
func (m *Manager) WaitForReady(timeout time.Duration) error {
	select {
	case <-m.ready:
		return nil
	case <-time.After(timeout):
		return errors.Errorf(
			"timed out after %s waiting for worker %q to signal it is ready",
			timeout, m.name)
	}
}

// SendMessage sends the data to the worker with the given tag and waits for a
// response. Returns an error if posting the message fails, marshalling the
// message fails, or if receiving a response times out.
func (m *Manager) SendMessage(tag Tag, data []byte) (response []byte, err error) {
	return m.SendTimeout(tag, data, m.ResponseTimeout)
}

// SendTimeout sends the data to the worker with a custom timeout. Refer to
// [Manager.SendMessage] for more information.
func (m *Manager) SendTimeout(
	tag Tag, data []byte, timeout time.Duration) (response []byte, err error) {
	responseChan := make(chan []byte, 1)
	id := m.registerSenderCallback(tag, func(msg []byte) { responseChan <- msg })

	err = m.sendMessage(tag, id, data)
	if err != nil {
		return nil, err
	}

	select {
	case response = <-responseChan:
		return response, nil
	case <-time.After(timeout):
		return nil, errors.Errorf(
			"timed out after %s waiting for response for %q and ID %d",
			timeout, tag, id)
	}
}

// SendNoResponse sends the data to the worker with the given tag; however,
// unlike [Manager.SendMessage], it returns immediately and does not wait for
// a response. A crashed worker goes unnoticed; prefer [Manager.SendMessage]
// as it will report a timeout.
func (m *Manager) SendNoResponse(tag Tag, data []byte) error {
	return m.sendMessage(tag, initID, data)
}

// sendMessage packages the data into a Message with the tag and ID and sends
// it to the worker.
func (m *Manager) sendMessage(tag Tag, id uint64, data []byte) error {
	if m.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Main sending message for %q and ID %d: %s",
			m.name, tag, id, truncate.Truncate(
				fmt.Sprintf("%q", data), 64, "...", truncate.PositionMiddle))
	}

	msg := Message{
		Tag:      tag,
		ID:       id,
		Response: false,
		Data:     data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return m.p.PostMessage(payload)
}

// sendResponse sends a reply to the worker with the given tag and ID.
func (m *Manager) sendResponse(tag Tag, id uint64, data []byte) error {
	if m.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Main sending reply for %q and ID %d: %s",
			m.name, tag, id, truncate.Truncate(
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
		return err
	}

	return m.p.PostMessage(payload)
}

// Stop closes the message reception thread and releases the port listener.
func (m *Manager) Stop() {
	m.cancel()
}

// messageReception processes received messages sequentially.
func (m *Manager) messageReception(events <-chan []byte) {
	jww.INFO.Printf("[WW] [%s] Starting message reception thread.", m.name)
	for data := range events {
		if err := m.processReceivedMessage(data); err != nil {
			jww.ERROR.Printf("[WW] [%s] Failed to process received message: %+v",
				m.name, err)
		}
	}
	jww.INFO.Printf("[WW] [%s] Quitting message reception thread.", m.name)
}

// processReceivedMessage processes the message received from the worker and
// calls the associated callback. This function blocks until the callback
// returns.
func (m *Manager) processReceivedMessage(data []byte) error {
	var msg Message
	err := json.Unmarshal(data, &msg)
	if err != nil {
		return err
	}

	if m.MessageLogging {
		jww.DEBUG.Printf("[WW] [%s] Main received message for %q and ID %d: %s",
			m.name, msg.Tag, msg.ID, truncate.Truncate(
				fmt.Sprintf("%q", data), 64, "...", truncate.PositionMiddle))
	}

	if msg.Response {
		callback, err := m.getSenderCallback(msg.Tag, msg.ID)
		if err != nil {
			return err
		}

		callback(msg.Data)
	} else {
		callback, err := m.getReceiverCallback(msg.Tag)
		if err != nil {
			return err
		}

		callback(msg.Data, func(message []byte) {
			if err = m.sendResponse(msg.Tag, msg.ID, message); err != nil {
				jww.ERROR.Printf("[WW] [%s] Failed to send response for %q "+
					"and ID %d: %+v", m.name, msg.Tag, msg.ID, err)
			}
		})
	}

	return nil
}

// getSenderCallback returns the SenderCallback for the given Tag and ID or
// returns an error if no callback is found. The callback is deleted from the
// map once found. This function is thread safe.
func (m *Manager) getSenderCallback(
	tag Tag, id uint64) (SenderCallback, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	callbacks, exists := m.senderCallbacks[tag]
	if !exists {
		return nil, errors.Errorf("no sender callbacks found for tag %q", tag)
	}

	callback, exists := callbacks[id]
	if !exists {
		return nil,
			errors.Errorf("no %q sender callback found for ID %d", tag, id)
	}

	delete(m.senderCallbacks[tag], id)
	if len(m.senderCallbacks[tag]) == 0 {
		delete(m.senderCallbacks, tag)
	}

	return callback, nil
}

// getReceiverCallback returns the ReceiverCallback for the given Tag or
// returns an error if no callback is found. This function is thread safe.
func (m *Manager) getReceiverCallback(tag Tag) (ReceiverCallback, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	callback, exists := m.receiverCallbacks[tag]
	if !exists {
		return nil, errors.Errorf("no receiver callbacks found for tag %q", tag)
	}

	return callback, nil
}

// RegisterCallback registers the callback for the given tag. Previous
// callbacks registered for the tag are overwritten. This function is thread
// safe.
func (m *Manager) RegisterCallback(tag Tag, receiverCB ReceiverCallback) {
	m.mux.Lock()
	defer m.mux.Unlock()

	jww.DEBUG.Printf("[WW] [%s] Main registering receiver callback for tag %q",
		m.name, tag)

	m.receiverCallbacks[tag] = receiverCB
}

// registerSenderCallback registers the callback for the given tag and a new
// unique ID used to associate the reply to the callback. Returns the ID that
// was registered. If a previous callback was registered, it is overwritten.
// This function is thread safe.
func (m *Manager) registerSenderCallback(
	tag Tag, senderCB SenderCallback) uint64 {
	m.mux.Lock()
	defer m.mux.Unlock()
	id := m.getNextID(tag)

	jww.DEBUG.Printf("[WW] [%s] Main registering callback for tag %q and ID %d",
		m.name, tag, id)

	if _, exists := m.senderCallbacks[tag]; !exists {
		m.senderCallbacks[tag] = make(map[uint64]SenderCallback)
	}
	m.senderCallbacks[tag][id] = senderCB

	return id
}

// getNextID returns the next unique ID for the given tag. This function is
// not thread-safe.
func (m *Manager) getNextID(tag Tag) uint64 {
	if _, exists := m.responseIDs[tag]; !exists {
		m.responseIDs[tag] = initID
	}

	id := m.responseIDs[tag]
	m.responseIDs[tag]++
	return id
}
