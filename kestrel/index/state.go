// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package index

// State is the lifecycle state of an index.
type State int32

// Lifecycle states. An index cycles Offline -> Opening -> Online -> Closing
// -> Offline indefinitely; deletion is an out-of-band destructive transition.
const (
	StateOffline State = iota
	StateOpening
	StateOnline
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateOpening:
		return "opening"
	case StateOnline:
		return "online"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
