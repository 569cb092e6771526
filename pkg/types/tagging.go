// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"sort"
)

// Tag is a single key/value pair in a tag set
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TagsToList converts a tag map to an ordered list, sorted by key.
func TagsToList(tags map[string]string) []Tag {
	list := make([]Tag, 0, len(tags))
	for k, v := range tags {
		list = append(list, Tag{Key: k, Value: v})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// TagsFromList converts a tag list to a map, validating every entry.
// Every tag must carry a non-empty key and value.
func TagsFromList(list []Tag) (map[string]string, error) {
	tags := make(map[string]string, len(list))
	for _, t := range list {
		if t.Key == "" {
			return nil, fmt.Errorf("tag key must not be empty")
		}
		if t.Value == "" {
			return nil, fmt.Errorf("tag %q: value must not be empty", t.Key)
		}
		tags[t.Key] = t.Value
	}
	return tags, nil
}
