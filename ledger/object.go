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
	"fmt"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
)

// GetObject reads a single object. A missing or deleted object yields
// errs.ErrNotFound.
func (c *Client) GetObject(
	ctx context.Context,
	id sui.ObjectID,
	opts ObjectOptions,
) (*ObjectSnapshot, error) {
	var resp objectResponse
	if err := c.call(ctx, &resp, "sui_getObject", id.String(), opts); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		switch resp.Error.Code {
		case "notExists", "deleted", "dynamicFieldNotFound":
			return nil, fmt.Errorf(
				"%w: object %s: %s",
				errs.ErrNotFound,
				id,
				resp.Error.Code,
			)
		default:
			return nil, fmt.Errorf(
				"%w: object %s: %s",
				errs.ErrNetwork,
				id,
				resp.Error.Code,
			)
		}
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: object %s", errs.ErrNotFound, id)
	}
	ret := &ObjectSnapshot{
		ObjectID: resp.Data.ObjectID,
		Version:  uint64(resp.Data.Version),
		Digest:   resp.Data.Digest,
		Type:     resp.Data.Type,
		Owner:    resp.Data.Owner,
	}
	if resp.Data.Content != nil {
		if ret.Type == "" {
			ret.Type = resp.Data.Content.Type
		}
		ret.Fields = resp.Data.Content.Fields
	}
	if opts.ShowContent && len(ret.Fields) == 0 {
		return nil, &errs.DecodeError{
			Field:  "content.fields",
			Reason: "object has no Move content",
		}
	}
	return ret, nil
}

// GetSharedObject reads an object and returns a mutable shared reference to
// it. Objects that are not shared are rejected.
func (c *Client) GetSharedObject(
	ctx context.Context,
	id sui.ObjectID,
) (sui.SharedObject, error) {
	obj, err := c.GetObject(ctx, id, ObjectOptions{ShowOwner: true})
	if err != nil {
		return sui.SharedObject{}, err
	}
	return sharedRef(obj)
}

func sharedRef(obj *ObjectSnapshot) (sui.SharedObject, error) {
	if obj.Owner == nil || obj.Owner.Kind != OwnerShared {
		return sui.SharedObject{}, &errs.DecodeError{
			Field:  "owner",
			Reason: fmt.Sprintf("object %s is not shared", obj.ObjectID),
		}
	}
	return sui.SharedObject{
		ObjectID:             obj.ObjectID,
		InitialSharedVersion: obj.Owner.InitialSharedVersion,
		Mutable:              true,
	}, nil
}
