// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "fmt"

// CORSRule is a single CORS rule for a bucket
type CORSRule struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers,omitempty"`
	ExposeHeaders  []string `json:"expose_headers,omitempty"`
	MaxAgeSeconds  int      `json:"max_age_seconds,omitempty"`
}

// CORSConfiguration is the rule set attached to a bucket
type CORSConfiguration struct {
	Rules []CORSRule `json:"rules"`
}

// Validate checks the configuration for structural errors.
func (c *CORSConfiguration) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("CORS configuration must contain at least one rule")
	}
	for i, rule := range c.Rules {
		if len(rule.AllowedOrigins) == 0 {
			return fmt.Errorf("CORS rule %d: allowed_origins is required", i)
		}
		if len(rule.AllowedMethods) == 0 {
			return fmt.Errorf("CORS rule %d: allowed_methods is required", i)
		}
		for _, m := range rule.AllowedMethods {
			switch m {
			case "GET", "PUT", "POST", "DELETE", "HEAD":
			default:
				return fmt.Errorf("CORS rule %d: unsupported method %q", i, m)
			}
		}
	}
	return nil
}
