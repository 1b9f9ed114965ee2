// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads JSON configs that may contain # comment lines.
// Unknown fields are rejected with the full path of the offending field.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
)

func LoadFile(filename string, cfg interface{}) error {
	if filename == "" {
		return fmt.Errorf("no config file specified")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadData(data, cfg)
}

var commentRe = regexp.MustCompile(`(^|\n)\s*#[^\n]*`)

func LoadData(data []byte, cfg interface{}) error {
	data = StripComments(data)
	if err := checkUnknownFields(data, reflect.TypeOf(cfg)); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// StripComments removes lines starting with #.
func StripComments(data []byte) []byte {
	return commentRe.ReplaceAll(data, nil)
}

func checkUnknownFields(data []byte, typ reflect.Type) error {
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config type is not pointer to struct")
	}
	return checkUnknownFieldsRec(data, "", typ)
}

func checkUnknownFieldsRec(data []byte, prefix string, typ reflect.Type) error {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	fields := make(map[string]reflect.Type)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			if tag == "-" {
				continue
			}
			if tagName := strings.Split(tag, ",")[0]; tagName != "" {
				name = tagName
			}
		}
		fields[strings.ToLower(name)] = field.Type
	}
	f := make(map[string]interface{})
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	for k, v := range f {
		field, ok := fields[strings.ToLower(k)]
		if !ok {
			return fmt.Errorf("unknown field '%v%v' in config", prefix, k)
		}
		if v == nil {
			continue
		}
		if field.Kind() == reflect.Slice && !isRawMessage(field) {
			elems, ok := v.([]interface{})
			if !ok {
				return fmt.Errorf("bad json array type '%v%v'", prefix, k)
			}
			for i, e := range elems {
				prefix1 := fmt.Sprintf("%v%v[%v].", prefix, k, i)
				if err := checkUnknownFieldsStruct(e, prefix1, field.Elem()); err != nil {
					return err
				}
			}
			continue
		}
		if err := checkUnknownFieldsStruct(v, prefix+k+".", field); err != nil {
			return err
		}
	}
	return nil
}

func checkUnknownFieldsStruct(val interface{}, prefix string, typ reflect.Type) error {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct || typ.PkgPath() == "time" {
		return nil
	}
	inner, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal inner struct %q: %w", prefix, err)
	}
	return checkUnknownFieldsRec(inner, prefix, typ)
}

func isRawMessage(typ reflect.Type) bool {
	return typ.PkgPath() == "encoding/json" && typ.Name() == "RawMessage"
}

// MergeJSONData overlays right on top of left. Nested objects are merged
// recursively, everything else in right replaces the value in left.
func MergeJSONData(left, right []byte) ([]byte, error) {
	vLeft := make(map[string]interface{})
	if err := json.Unmarshal(StripComments(left), &vLeft); err != nil {
		return nil, fmt.Errorf("left json parsing failed: %w", err)
	}
	vRight := make(map[string]interface{})
	if len(bytes.TrimSpace(right)) != 0 {
		if err := json.Unmarshal(right, &vRight); err != nil {
			return nil, fmt.Errorf("right json parsing failed: %w", err)
		}
	}
	return json.Marshal(mergeRecursive(vLeft, vRight))
}

func mergeRecursive(left, right map[string]interface{}) map[string]interface{} {
	for k, v := range right {
		rightMap, rightOk := v.(map[string]interface{})
		leftMap, leftOk := left[k].(map[string]interface{})
		if rightOk && leftOk {
			left[k] = mergeRecursive(leftMap, rightMap)
		} else {
			left[k] = v
		}
	}
	return left
}
