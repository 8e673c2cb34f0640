////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

// initID is the first ID assigned to a sender callback for each tag. It is
// also used for messages that expect no response.
const initID = uint64(0)

// Message is the outer message that contains the contents of each message sent
// across the bridge. It is transmitted as JSON.
type Message struct {
	Tag      Tag    `json:"tag"`
	ID       uint64 `json:"id"`
	Response bool   `json:"response"`
	Data     []byte `json:"data"`
}
