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

package models

// MigrateModels contains a list of model objects that should have DB migrations applied
var MigrateModels = []any{
	&LocalState{},
}

// LocalState is a single key/value entry scoped to an account address
type LocalState struct {
	Owner string `gorm:"primaryKey;size:66"`
	Key   string `gorm:"column:state_key;primaryKey;size:255"`
	Value string `gorm:"type:text;not null"`
}

func (LocalState) TableName() string {
	return "local_state"
}
