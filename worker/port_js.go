////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package worker

import (
	"context"
	"syscall/js"

	"github.com/hack-pad/safejs"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/wasm-utils/utils"
)

// JsPort wraps a Javascript object implementing the MessagePort API, such as
// a MessagePort, Worker, or DedicatedWorkerGlobalScope.
//
// Doc: https://developer.mozilla.org/en-US/docs/Web/API/MessagePort
type JsPort struct {
	v safejs.Value
}

// NewJsPort wraps the given Javascript object as a Port. Returns an error if
// the object does not support postMessage.
func NewJsPort(v safejs.Value) (*JsPort, error) {
	method, err := v.Get("postMessage")
	if err != nil {
		return nil, err
	}
	if method.Type() != safejs.TypeFunction {
		return nil, errors.New("postMessage is not a function")
	}
	return &JsPort{v}, nil
}

// Self returns a Port wrapping the dedicated worker global scope. Worker
// binaries use it to communicate with the main thread.
//
// Doc: https://developer.mozilla.org/en-US/docs/Web/API/DedicatedWorkerGlobalScope
func Self() (*JsPort, error) {
	return NewJsPort(safejs.Safe(js.Global()))
}

// PostMessage sends the message bytes from the port via transfer. Ownership
// of the underlying buffer moves to the receiving context instead of being
// copied.
func (p *JsPort) PostMessage(message []byte) error {
	buffer := utils.CopyBytesToJS(message)
	_, err := p.v.Call("postMessage", buffer, []any{buffer.Get("buffer")})
	return err
}

// Listen registers listeners on the port and returns all received message
// payloads on the returned channel. Only Uint8Array message data is
// forwarded; events of any other type are logged and dropped. The listeners
// are removed and the channel is closed once the context is cancelled.
func (p *JsPort) Listen(ctx context.Context) (_ <-chan []byte, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	events := make(chan []byte)
	messageHandler, err := nonBlocking(func(args []safejs.Value) {
		data, parseErr := args[0].Get("data")
		if parseErr != nil {
			jww.ERROR.Printf(
				"[WW] Failed to parse MessageEvent: %+v", parseErr)
			return
		}

		jsData := safejs.Unsafe(data)
		if jsData.Type() == js.TypeObject &&
			jsData.Get("constructor").Equal(utils.Uint8Array) {
			select {
			case events <- utils.CopyBytesToGo(jsData):
			case <-ctx.Done():
			}
			return
		}

		jww.ERROR.Printf("[WW] Cannot handle message data of type %s: %s",
			jsData.Type(), utils.JsToJson(jsData))
	})
	if err != nil {
		return nil, err
	}

	// Doc: https://developer.mozilla.org/en-US/docs/Web/API/Worker/error_event
	errorHandler, err := nonBlocking(func(args []safejs.Value) {
		jww.ERROR.Printf("[WW] Port received error event: %+v",
			js.Error{Value: safejs.Unsafe(args[0])})
	})
	if err != nil {
		return nil, err
	}

	// Doc: https://developer.mozilla.org/en-US/docs/Web/API/Worker/messageerror_event
	messageErrorHandler, err := nonBlocking(func(args []safejs.Value) {
		jww.ERROR.Printf("[WW] Port received message error event: %s",
			utils.JsToJson(safejs.Unsafe(args[0])))
	})
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		if _, err := p.v.Call(
			"removeEventListener", "message", messageHandler); err == nil {
			messageHandler.Release()
		}
		if _, err := p.v.Call(
			"removeEventListener", "error", errorHandler); err == nil {
			errorHandler.Release()
		}
		if _, err := p.v.Call(
			"removeEventListener", "messageerror", messageErrorHandler); err == nil {
			messageErrorHandler.Release()
		}
		close(events)
	}()

	_, err = p.v.Call("addEventListener", "message", messageHandler)
	if err != nil {
		return nil, err
	}
	_, err = p.v.Call("addEventListener", "error", errorHandler)
	if err != nil {
		return nil, err
	}
	_, err = p.v.Call("addEventListener", "messageerror", messageErrorHandler)
	if err != nil {
		return nil, err
	}

	// MessagePort objects queue messages until started; Worker objects and
	// the global scope have no start method.
	if start, err := p.v.Get("start"); err == nil {
		if truthy, err := start.Truthy(); err == nil && truthy {
			if _, err = p.v.Call("start"); err != nil {
				return nil, err
			}
		}
	}

	return events, nil
}

func nonBlocking(fn func(args []safejs.Value)) (safejs.Func, error) {
	return safejs.FuncOf(func(_ safejs.Value, args []safejs.Value) any {
		go fn(args)
		return nil
	})
}
