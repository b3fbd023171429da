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

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
)

// Project is a vote candidate as stored in the shared votes object
type Project struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	InfoURL   string `json:"infoUrl"`
	VoteCount uint64 `json:"voteCount"`
}

// VotesObject is the decoded shared votes object
type VotesObject struct {
	Ref      sui.SharedObject
	Version  uint64
	Projects []Project
}

// ProjectIDs returns the ids present in the project list
func (v *VotesObject) ProjectIDs() []uint64 {
	ret := make([]uint64, 0, len(v.Projects))
	for _, p := range v.Projects {
		ret = append(ret, p.ID)
	}
	return ret
}

// GetProjects reads the votes object and decodes its project list in
// ledger order
func (c *Client) GetProjects(
	ctx context.Context,
	votesObjectID sui.ObjectID,
) (*VotesObject, error) {
	obj, err := c.GetObject(
		ctx,
		votesObjectID,
		ObjectOptions{ShowContent: true, ShowOwner: true, ShowType: true},
	)
	if err != nil {
		return nil, err
	}
	ref, err := sharedRef(obj)
	if err != nil {
		return nil, err
	}
	projects, err := DecodeProjects(obj.Fields)
	if err != nil {
		return nil, err
	}
	return &VotesObject{
		Ref:      ref,
		Version:  obj.Version,
		Projects: projects,
	}, nil
}

// DecodeProjects validates and decodes the Move fields of a votes object
func DecodeProjects(fields json.RawMessage) ([]Project, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(fields, &top); err != nil {
		return nil, &errs.DecodeError{Field: "fields", Reason: err.Error()}
	}
	rawList, ok := top["project_list"]
	if !ok {
		return nil, &errs.DecodeError{Field: "project_list", Reason: "missing"}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(rawList, &list); err != nil {
		return nil, &errs.DecodeError{Field: "project_list", Reason: err.Error()}
	}
	ret := make([]Project, 0, len(list))
	seen := make(map[uint64]struct{}, len(list))
	for i, item := range list {
		p, err := decodeProject(item)
		if err != nil {
			var de *errs.DecodeError
			if errors.As(err, &de) {
				de.Field = fmt.Sprintf("project_list[%d].%s", i, de.Field)
			}
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, &errs.DecodeError{
				Field:  fmt.Sprintf("project_list[%d].id", i),
				Reason: fmt.Sprintf("duplicate id %d", p.ID),
			}
		}
		seen[p.ID] = struct{}{}
		ret = append(ret, p)
	}
	return ret, nil
}

func decodeProject(data json.RawMessage) (Project, error) {
	var wrapper struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return Project{}, &errs.DecodeError{Field: "fields", Reason: err.Error()}
	}
	if wrapper.Fields == nil {
		return Project{}, &errs.DecodeError{Field: "fields", Reason: "missing"}
	}
	var ret Project
	var err error
	if ret.ID, err = u64Field(wrapper.Fields, "id"); err != nil {
		return Project{}, err
	}
	if ret.Name, err = stringField(wrapper.Fields, "name"); err != nil {
		return Project{}, err
	}
	if ret.InfoURL, err = stringField(wrapper.Fields, "air_table_url"); err != nil {
		return Project{}, err
	}
	if ret.VoteCount, err = u64Field(wrapper.Fields, "votes"); err != nil {
		return Project{}, err
	}
	return ret, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &errs.DecodeError{Field: name, Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &errs.DecodeError{Field: name, Reason: "expected string"}
	}
	return s, nil
}

// u64Field accepts the string rendering used for Move u64 values as well as
// plain JSON numbers
func u64Field(fields map[string]json.RawMessage, name string) (uint64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, &errs.DecodeError{Field: name, Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, &errs.DecodeError{Field: name, Reason: "expected u64"}
		}
		s = n.String()
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &errs.DecodeError{Field: name, Reason: "expected u64"}
	}
	return v, nil
}
