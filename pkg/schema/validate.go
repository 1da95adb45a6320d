// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError identifies the offending property and the violated rule.
type ValidationError struct {
	Property string
	Rule     string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Property, e.Rule, e.Message)
}

// rule is a single validation predicate. A nil result means the rule holds.
type rule func() *ValidationError

// runRules evaluates rules in order and short-circuits on the first failure.
func runRules(rules ...rule) error {
	for _, r := range rules {
		if err := r(); err != nil {
			return err
		}
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

func notBlank(property, v string) rule {
	return func() *ValidationError {
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Property: property, Rule: "notBlank", Message: "must not be blank"}
		}
		return nil
	}
}

func validIdentifier(property, v string) rule {
	return func() *ValidationError {
		if !identifierPattern.MatchString(v) {
			return &ValidationError{Property: property, Rule: "identifier", Message: fmt.Sprintf("%q is not a valid identifier", v)}
		}
		return nil
	}
}

func durationGTE(property string, v, minimum time.Duration) rule {
	return func() *ValidationError {
		if v < minimum {
			return &ValidationError{Property: property, Rule: "gte", Message: fmt.Sprintf("%s is below the minimum %s", v, minimum)}
		}
		return nil
	}
}

func uintGTE(property string, v, minimum uint64) rule {
	return func() *ValidationError {
		if v < minimum {
			return &ValidationError{Property: property, Rule: "gte", Message: fmt.Sprintf("%d is below the minimum %d", v, minimum)}
		}
		return nil
	}
}

// gteOrDisabled holds when v is zero (disabled) or at least minimum.
func gteOrDisabled(property string, v, minimum int) rule {
	return func() *ValidationError {
		if v != 0 && v < minimum {
			return &ValidationError{Property: property, Rule: "gteOrDisabled", Message: fmt.Sprintf("%d is below the minimum %d and not disabled", v, minimum)}
		}
		return nil
	}
}

func uniqueNames(property string, names []string) rule {
	return func() *ValidationError {
		seen := make(map[string]struct{}, len(names))
		for _, n := range names {
			if _, ok := seen[n]; ok {
				return &ValidationError{Property: property, Rule: "unique", Message: fmt.Sprintf("duplicate name %q", n)}
			}
			seen[n] = struct{}{}
		}
		return nil
	}
}
