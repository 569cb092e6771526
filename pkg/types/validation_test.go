// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidBucketName(t *testing.T) {
	valid := []string{
		"abc",
		"my-bucket",
		"logs.prod",
		"a1b",
		strings.Repeat("a", 63),
	}
	for _, name := range valid {
		assert.True(t, IsValidBucketName(name), "expected valid: %s", name)
	}

	invalid := []string{
		"",
		"ab",
		strings.Repeat("a", 64),
		"UpperCase",
		"bad..dots",
		".startdot",
		"enddot.",
		"-start",
		"end-",
		"label.-dash",
		"label-.dash",
		"192.168.1.1",
		"has_underscore",
		"spaced name",
	}
	for _, name := range invalid {
		assert.False(t, IsValidBucketName(name), "expected invalid: %s", name)
	}
}

func TestValidateObjectKey(t *testing.T) {
	assert.NoError(t, ValidateObjectKey("a.txt"))
	assert.NoError(t, ValidateObjectKey("photos/2025/cat.jpg"))
	assert.NoError(t, ValidateObjectKey(strings.Repeat("k", MaxObjectKeyLength)))

	assert.Error(t, ValidateObjectKey(""))
	assert.Error(t, ValidateObjectKey("/leading-slash"))
	assert.Error(t, ValidateObjectKey(strings.Repeat("k", MaxObjectKeyLength+1)))
	assert.Error(t, ValidateObjectKey("bad\x00key"))
	assert.Error(t, ValidateObjectKey("bad\nkey"))
}

func TestTagsFromList(t *testing.T) {
	tags, err := TagsFromList([]Tag{{Key: "env", Value: "prod"}, {Key: "team", Value: "core"}})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"env": "prod", "team": "core"}, tags)

	_, err = TagsFromList([]Tag{{Key: "", Value: "x"}})
	assert.Error(t, err)

	_, err = TagsFromList([]Tag{{Key: "x", Value: ""}})
	assert.Error(t, err)
}

func TestTagsToListOrdered(t *testing.T) {
	list := TagsToList(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []Tag{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}}, list)
}
