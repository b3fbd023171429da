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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/blinklabs-io/zkvote/event"
)

type stateChangeMessage struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

type sessionMessage struct {
	Address  string `json:"address"`
	Network  string `json:"network"`
	LoggedIn bool   `json:"logged_in"`
}

// handleEvents streams workflow and session events as server-sent events
// until the client goes away or falls too far behind
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	bus := s.config.EventBus
	if bus == nil {
		writeError(w, http.StatusNotFound, "event stream is not enabled", "")
		return
	}
	rc := http.NewResponseController(w)
	wfID, wfCh := bus.Subscribe(event.WorkflowStateChangedEventType)
	defer bus.Unsubscribe(event.WorkflowStateChangedEventType, wfID)
	sessID, sessCh := bus.Subscribe(event.SessionChangedEventType)
	defer bus.Unsubscribe(event.SessionChangedEventType, sessID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		s.logger.Debug("event stream does not support flushing", "error", err)
		return
	}
	for {
		var evt event.Event
		var ok bool
		select {
		case <-r.Context().Done():
			return
		case evt, ok = <-wfCh:
		case evt, ok = <-sessCh:
		}
		if !ok {
			// dropped by the bus
			return
		}
		if err := writeEvent(w, evt); err != nil {
			s.logger.Debug("dropping event stream", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, evt event.Event) error {
	var payload any
	switch data := evt.Data.(type) {
	case event.WorkflowStateChangedEvent:
		msg := stateChangeMessage{From: data.From, To: data.To, Digest: data.Digest}
		if data.Err != nil {
			msg.Error = data.Err.Error()
		}
		payload = msg
	case event.SessionChangedEvent:
		payload = sessionMessage(data)
	default:
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, body)
	return err
}
