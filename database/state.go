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

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/zkvote/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) get(ctx context.Context, db *gorm.DB, owner, key string) (string, error) {
	var state models.LocalState
	result := db.WithContext(ctx).
		Where("owner = ? AND state_key = ?", owner, key).
		First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("get local state %q: %w", key, result.Error)
	}
	return state.Value, nil
}

// put upserts a value
func (d *Database) put(ctx context.Context, db *gorm.DB, owner, key, value string) error {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.LocalState{Owner: owner, Key: key, Value: value})
	if result.Error != nil {
		return fmt.Errorf("set local state %q: %w", key, result.Error)
	}
	return nil
}

// insert writes a value only if the key is absent
func (d *Database) insert(ctx context.Context, db *gorm.DB, owner, key, value string) error {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "state_key"}},
		DoNothing: true,
	}).Create(&models.LocalState{Owner: owner, Key: key, Value: value})
	if result.Error != nil {
		return fmt.Errorf("insert local state %q: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRecordExists, key)
	}
	return nil
}

func (d *Database) delete(ctx context.Context, db *gorm.DB, owner string, keys ...string) error {
	result := db.WithContext(ctx).
		Where("owner = ? AND state_key IN ?", owner, keys).
		Delete(&models.LocalState{})
	if result.Error != nil {
		return fmt.Errorf("delete local state: %w", result.Error)
	}
	return nil
}
