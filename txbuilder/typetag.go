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

package txbuilder

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/blinklabs-io/zkvote/sui"
)

type typeTagKind uint8

const (
	tagBool typeTagKind = iota
	tagU8
	tagU64
	tagU128
	tagAddress
	tagSigner
	tagVector
	tagStruct
	tagU16
	tagU32
	tagU256
)

var primitiveTags = map[string]typeTagKind{
	"bool":    tagBool,
	"u8":      tagU8,
	"u16":     tagU16,
	"u32":     tagU32,
	"u64":     tagU64,
	"u128":    tagU128,
	"u256":    tagU256,
	"address": tagAddress,
	"signer":  tagSigner,
}

// TypeTag is a Move type
type TypeTag struct {
	kind   typeTagKind
	elem   *TypeTag
	strukt *StructTag
}

// StructTag names a Move struct type
type StructTag struct {
	Address    sui.Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// ParseTypeTag parses forms like "u64", "vector<u8>" and
// "0x2::coin::Coin<0x2::sui::SUI>"
func ParseTypeTag(s string) (TypeTag, error) {
	tag, rest, err := parseTypeTag(strings.TrimSpace(s))
	if err != nil {
		return TypeTag{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return TypeTag{}, errs.Validation("trailing input in type %q", s)
	}
	return tag, nil
}

func parseTypeTag(s string) (TypeTag, string, error) {
	s = strings.TrimLeft(s, " ")
	end := strings.IndexAny(s, "<>, ")
	head := s
	if end >= 0 {
		head = s[:end]
	}
	if kind, ok := primitiveTags[head]; ok {
		return TypeTag{kind: kind}, s[len(head):], nil
	}
	if head == "vector" {
		if end < 0 || s[end] != '<' {
			return TypeTag{}, "", errs.Validation("malformed vector type %q", s)
		}
		elem, rest, err := parseTypeTag(s[end+1:])
		if err != nil {
			return TypeTag{}, "", err
		}
		rest = strings.TrimLeft(rest, " ")
		if !strings.HasPrefix(rest, ">") {
			return TypeTag{}, "", errs.Validation("unterminated vector type %q", s)
		}
		return TypeTag{kind: tagVector, elem: &elem}, rest[1:], nil
	}
	parts := strings.Split(head, "::")
	if len(parts) != 3 {
		return TypeTag{}, "", errs.Validation("unknown type %q", head)
	}
	addr, err := sui.ParseAddress(parts[0])
	if err != nil {
		return TypeTag{}, "", errs.Validation("type %q: %v", head, err)
	}
	st := &StructTag{Address: addr, Module: parts[1], Name: parts[2]}
	rest := s[len(head):]
	if strings.HasPrefix(rest, "<") {
		rest = rest[1:]
		for {
			param, r, err := parseTypeTag(rest)
			if err != nil {
				return TypeTag{}, "", err
			}
			st.TypeParams = append(st.TypeParams, param)
			r = strings.TrimLeft(r, " ")
			if strings.HasPrefix(r, ",") {
				rest = r[1:]
				continue
			}
			if strings.HasPrefix(r, ">") {
				rest = r[1:]
				break
			}
			return TypeTag{}, "", errs.Validation("unterminated type parameters in %q", s)
		}
	}
	return TypeTag{kind: tagStruct, strukt: st}, rest, nil
}

func (t TypeTag) String() string {
	for name, kind := range primitiveTags {
		if kind == t.kind {
			return name
		}
	}
	switch t.kind {
	case tagVector:
		return "vector<" + t.elem.String() + ">"
	case tagStruct:
		ret := fmt.Sprintf("%s::%s::%s", t.strukt.Address, t.strukt.Module, t.strukt.Name)
		if len(t.strukt.TypeParams) > 0 {
			params := make([]string, 0, len(t.strukt.TypeParams))
			for _, p := range t.strukt.TypeParams {
				params = append(params, p.String())
			}
			ret += "<" + strings.Join(params, ", ") + ">"
		}
		return ret
	}
	return "unknown"
}

var (
	u64Type  = TypeTag{kind: tagU64}
	u256Type = TypeTag{kind: tagU256}
)
