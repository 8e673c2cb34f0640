////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

// Tag describes how a message sent across the bridge should be handled.
type Tag string

// ReadyTag is sent by the worker to the main thread once all of its callbacks
// are registered and it is ready to receive messages.
const ReadyTag Tag = "Ready"
