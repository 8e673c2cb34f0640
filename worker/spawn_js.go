////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package worker

import (
	"syscall/js"
	"time"

	"github.com/hack-pad/safejs"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// NewManager spawns a new Javascript Worker from the given URL and returns a
// Manager connected to it. name describes the worker and is used for
// debugging and logging. This function blocks until the worker signals it is
// ready or Params.ResponseTimeout is reached.
//
// Doc: https://developer.mozilla.org/en-US/docs/Web/API/Worker/Worker
func NewManager(aURL, name string, params Params) (m *Manager, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf(
				"failed to create worker from URL %q: %+v", aURL, r)
		}
	}()

	opts := newWorkerOptions("classic", "same-origin", name)
	workerJS := js.Global().Get("Worker").New(aURL, opts)

	port, err := NewJsPort(safejs.Safe(workerJS))
	if err != nil {
		return nil, errors.Wrap(err, "invalid Worker object")
	}

	m, err = NewPortManager(port, name, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err = m.WaitForReady(params.ResponseTimeout); err != nil {
		m.Stop()
		return nil, err
	}
	jww.INFO.Printf("[WW] [%s] Worker ready after %s.", name, time.Since(start))

	return m, nil
}

// newWorkerOptions creates a Javascript object containing optional properties
// that can be set when creating a new worker.
//   - workerType: Either "classic" or "module".
//   - credentials: Either "omit", "same-origin", or "include".
//   - name: An identifying name for the DedicatedWorkerGlobalScope.
//
// Doc: https://developer.mozilla.org/en-US/docs/Web/API/Worker/Worker#options
func newWorkerOptions(workerType, credentials, name string) map[string]any {
	return map[string]any{
		"type":        workerType,
		"credentials": credentials,
		"name":        name,
	}
}
