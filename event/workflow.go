// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

// WorkflowStateChangedEventType is published on every vote workflow
// transition
const WorkflowStateChangedEventType = EventType("workflow.state_changed")

// WorkflowStateChangedEvent describes a vote workflow transition
type WorkflowStateChangedEvent struct {
	From string
	To   string
	// Digest of the submission involved, if any
	Digest string
	// Err is set when the transition was caused by a failure
	Err error
}

// SessionChangedEventType is published when the signed-in identity changes
const SessionChangedEventType = EventType("session.changed")

type SessionChangedEvent struct {
	Address  string
	Network  string
	LoggedIn bool
}
