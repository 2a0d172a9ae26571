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

// Package telemetry collects local-only run statistics and estimates
// what the same token volume would have cost on commercial APIs.
// Nothing leaves the machine.
package telemetry

import (
	"fmt"
	"math"
	"time"
)

// ModelPricing is input/output cost per one million tokens in USD.
type ModelPricing struct {
	Input  float64
	Output float64
}

// CommercialPricing holds commercial API rates as of early 2026.
type CommercialPricing struct {
	GPT4o        ModelPricing
	GPT4oMini    ModelPricing
	GPT4Turbo    ModelPricing
	ClaudeOpus   ModelPricing
	ClaudeSonnet ModelPricing
	ClaudeHaiku  ModelPricing
	GeminiFlash  ModelPricing
	GeminiPro    ModelPricing
}

// CurrentPricing returns the market-average commercial API pricing.
func CurrentPricing() CommercialPricing {
	return CommercialPricing{
		GPT4o:        ModelPricing{Input: 2.50, Output: 10.00},
		GPT4oMini:    ModelPricing{Input: 0.15, Output: 0.60},
		GPT4Turbo:    ModelPricing{Input: 10.00, Output: 30.00},
		ClaudeOpus:   ModelPricing{Input: 15.00, Output: 75.00},
		ClaudeSonnet: ModelPricing{Input: 3.00, Output: 15.00},
		ClaudeHaiku:  ModelPricing{Input: 0.25, Output: 1.25},
		GeminiFlash:  ModelPricing{Input: 0.10, Output: 0.40},
		GeminiPro:    ModelPricing{Input: 1.25, Output: 5.00},
	}
}

// SavingsCalculator compares local inference (marginal cost zero) against
// commercial providers.
type SavingsCalculator struct {
	pricing CommercialPricing
}

// NewSavingsCalculator creates a calculator with current market pricing.
func NewSavingsCalculator() *SavingsCalculator {
	return &SavingsCalculator{pricing: CurrentPricing()}
}

func (c *SavingsCalculator) cost(p ModelPricing, inputTokens, outputTokens int64) float64 {
	inputM := float64(inputTokens) / 1_000_000.0
	outputM := float64(outputTokens) / 1_000_000.0
	return inputM*p.Input + outputM*p.Output
}

// Savings estimates the cost avoided for the given token volume, averaged
// across the workhorse tiers of the major providers (GPT-4o, Claude
// Sonnet, Gemini Pro).
func (c *SavingsCalculator) Savings(inputTokens, outputTokens int64) float64 {
	if inputTokens <= 0 && outputTokens <= 0 {
		return 0
	}
	avg := (c.cost(c.pricing.GPT4o, inputTokens, outputTokens) +
		c.cost(c.pricing.ClaudeSonnet, inputTokens, outputTokens) +
		c.cost(c.pricing.GeminiPro, inputTokens, outputTokens)) / 3.0
	return round4(avg)
}

// Breakdown maps provider model names to the savings against each.
type Breakdown map[string]float64

// Breakdown returns per-model savings for the given token volume.
func (c *SavingsCalculator) Breakdown(inputTokens, outputTokens int64) Breakdown {
	return Breakdown{
		"gpt-4o":        round4(c.cost(c.pricing.GPT4o, inputTokens, outputTokens)),
		"gpt-4o-mini":   round4(c.cost(c.pricing.GPT4oMini, inputTokens, outputTokens)),
		"gpt-4-turbo":   round4(c.cost(c.pricing.GPT4Turbo, inputTokens, outputTokens)),
		"claude-opus":   round4(c.cost(c.pricing.ClaudeOpus, inputTokens, outputTokens)),
		"claude-sonnet": round4(c.cost(c.pricing.ClaudeSonnet, inputTokens, outputTokens)),
		"claude-haiku":  round4(c.cost(c.pricing.ClaudeHaiku, inputTokens, outputTokens)),
		"gemini-flash":  round4(c.cost(c.pricing.GeminiFlash, inputTokens, outputTokens)),
		"gemini-pro":    round4(c.cost(c.pricing.GeminiPro, inputTokens, outputTokens)),
	}
}

// Projection extrapolates savings over standard horizons.
type Projection struct {
	Daily   float64
	Weekly  float64
	Monthly float64
	Yearly  float64
}

// Project extrapolates the savings for a usage period to daily, weekly,
// monthly and yearly rates.
func (c *SavingsCalculator) Project(inputTokens, outputTokens int64, period time.Duration) Projection {
	savings := c.Savings(inputTokens, outputTokens)
	if period <= 0 || savings <= 0 {
		return Projection{}
	}
	daily := savings / (period.Hours() / 24.0)
	return Projection{
		Daily:   round4(daily),
		Weekly:  round4(daily * 7),
		Monthly: round4(daily * 30.44),
		Yearly:  round4(daily * 365.25),
	}
}

// round4 keeps sub-penny precision without float noise in the JSON.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// FormatSavings renders an amount as a currency string.
func FormatSavings(amount float64) string {
	if amount < 0.01 && amount > 0 {
		return fmt.Sprintf("$%.4f", amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}
