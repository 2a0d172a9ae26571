// Copyright 2025 Kadir Pekel
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

// Package contextbudget allocates the model context window across the
// categories of material a step needs: the task itself, file contents,
// project structure, history, memory, and recent errors. Each category
// gets a configured fraction of the window and is truncated to fit.
package contextbudget

import "fmt"

// Category names one slice of the context window.
type Category string

const (
	CategoryTask    Category = "task"
	CategoryFiles   Category = "files"
	CategoryProject Category = "project"
	CategoryHistory Category = "history"
	CategoryMemory  Category = "memory"
	CategoryErrors  Category = "errors"
	CategoryReserve Category = "reserve"
)

// defaultFractions apply when a category is missing from the config.
var defaultFractions = map[Category]float64{
	CategoryTask:    0.25,
	CategoryFiles:   0.33,
	CategoryProject: 0.16,
	CategoryHistory: 0.12,
	CategoryMemory:  0.12,
	CategoryErrors:  0.06,
	CategoryReserve: 0.06,
}

// Budget is a token budget split across categories.
type Budget struct {
	Total     int
	allocated map[Category]int
	used      map[Category]int
}

// NewBudget splits total tokens by the given fractions. The reserve soaks
// up whatever integer truncation leaves over, so the allocations always
// sum to the total.
func NewBudget(total int, fractions map[string]float64) *Budget {
	b := &Budget{
		Total:     total,
		allocated: make(map[Category]int, len(defaultFractions)),
		used:      make(map[Category]int, len(defaultFractions)),
	}

	assigned := 0
	for cat, def := range defaultFractions {
		if cat == CategoryReserve {
			continue
		}
		frac := def
		if v, ok := fractions[string(cat)]; ok {
			frac = v
		}
		n := int(float64(total) * frac)
		b.allocated[cat] = n
		assigned += n
	}

	reserve := total - assigned
	if reserve < 0 {
		reserve = 0
	}
	b.allocated[CategoryReserve] = reserve
	return b
}

// Allocation returns the token allowance for a category.
func (b *Budget) Allocation(cat Category) int {
	return b.allocated[cat]
}

// Remaining returns the unused allowance for a category.
func (b *Budget) Remaining(cat Category) int {
	return b.allocated[cat] - b.used[cat]
}

// Consume charges tokens to a category. It fails when the category's
// allowance would be exceeded.
func (b *Budget) Consume(cat Category, tokens int) error {
	if tokens > b.Remaining(cat) {
		return fmt.Errorf("context budget exceeded for %s: %d requested, %d remaining",
			cat, tokens, b.Remaining(cat))
	}
	b.used[cat] += tokens
	return nil
}

// TotalUsed returns tokens consumed across all categories.
func (b *Budget) TotalUsed() int {
	sum := 0
	for _, n := range b.used {
		sum += n
	}
	return sum
}

// TotalRemaining returns tokens left across all categories.
func (b *Budget) TotalRemaining() int {
	return b.Total - b.TotalUsed()
}

// Reset clears usage, keeping the allocations.
func (b *Budget) Reset() {
	b.used = make(map[Category]int, len(b.allocated))
}
