// Package strategy implements the Fetch Strategy Selector: it picks, runs,
// and learns a per-URL fetch strategy with fallback and rich diagnostics,
// an explicit learned-pattern-first fallback chain with machine-readable
// diagnostics over the Native and Vendor fetch strategies.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/store"
)

// Mode is the Selector's optimization mode.
type Mode string

const (
	ModeCost  Mode = "cost"
	ModeSpeed Mode = "speed"
)

// Diagnostics is the per-attempt record the Selector returns alongside
// every outcome, success or failure.
type Diagnostics struct {
	StrategiesAttempted []fetch.Tag
	StrategyErrors      map[fetch.Tag]string
	Timing              map[fetch.Tag]time.Duration
}

func newDiagnostics() Diagnostics {
	return Diagnostics{StrategyErrors: map[fetch.Tag]string{}, Timing: map[fetch.Tag]time.Duration{}}
}

// Selector chooses, runs, and learns a fetch strategy per URL. Vendor may
// be nil, meaning no VENDOR_API_KEY was configured; the Selector then
// never attempts it and records it as not configured.
type Selector struct {
	Native fetch.Client
	Vendor fetch.Client
	Table  *LearnedTable
	Mode   Mode
}

// Select runs the fallback algorithm and returns the winning (or
// composite-failure) FetchResult plus diagnostics.
func (s *Selector) Select(ctx context.Context, rawURL string, opts fetch.Options) (fetch.Result, Diagnostics, error) {
	log := logger.Component("strategy")
	diag := newDiagnostics()

	normalized, err := store.NormalizeURL(rawURL, false)
	if err != nil {
		return fetch.Result{}, diag, fmt.Errorf("strategy: normalize url: %w", err)
	}

	order := s.order(normalized)
	log.Debug("strategy selection starting", "url", normalized, "mode", s.Mode, "order", order)

	var lastResult fetch.Result
	for _, tag := range order {
		client := s.clientFor(tag)
		if client == nil {
			diag.StrategyErrors[tag] = fmt.Sprintf("%s client not configured", tag)
			continue
		}

		diag.StrategiesAttempted = append(diag.StrategiesAttempted, tag)
		start := time.Now()
		result, err := client.Fetch(ctx, normalized, opts)
		diag.Timing[tag] = time.Since(start)

		if err != nil {
			diag.StrategyErrors[tag] = err.Error()
			continue
		}
		lastResult = result

		if result.Success {
			if s.Table != nil {
				if err := s.Table.Record(normalized, tag); err != nil {
					log.Warn("failed to persist learned strategy", "error", err)
				}
			}
			log.Debug("strategy selection succeeded", "url", normalized, "strategy", tag)
			return result, diag, nil
		}

		diag.StrategyErrors[tag] = reasonFor(result)

		if result.IsAuthError {
			log.Debug("strategy selection stopped on auth error", "url", normalized, "strategy", tag)
			break
		}
	}

	return s.compositeFailure(lastResult, diag), diag, nil
}

// order computes the fallback chain for one request: speed mode tries
// only Vendor; cost mode consults the learned table for the
// longest-matching pattern, otherwise starts with Native.
func (s *Selector) order(normalizedURL string) []fetch.Tag {
	if s.Mode == ModeSpeed {
		return []fetch.Tag{fetch.Vendor}
	}

	first := fetch.Native
	if s.Table != nil {
		if learned, ok := s.Table.Lookup(normalizedURL); ok {
			first = learned
		}
	}
	if first == fetch.Vendor {
		return []fetch.Tag{fetch.Vendor, fetch.Native}
	}
	return []fetch.Tag{fetch.Native, fetch.Vendor}
}

func (s *Selector) clientFor(tag fetch.Tag) fetch.Client {
	switch tag {
	case fetch.Native:
		if s.Native == nil {
			return nil
		}
		return s.Native
	case fetch.Vendor:
		return s.Vendor
	default:
		return nil
	}
}

// reasonFor renders the per-attempt failure message: the result's error
// text when set, else "HTTP <status>" when a status is known.
func reasonFor(r fetch.Result) string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if r.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	return "unknown failure"
}

// compositeFailure builds the §7 FetchError message:
// "All strategies failed. Attempted: <tags>. <tag>: <reason>; ..."
func (s *Selector) compositeFailure(last fetch.Result, diag Diagnostics) fetch.Result {
	tags := make([]string, len(diag.StrategiesAttempted))
	for i, t := range diag.StrategiesAttempted {
		tags[i] = string(t)
	}

	reasonKeys := make([]fetch.Tag, 0, len(diag.StrategyErrors))
	for t := range diag.StrategyErrors {
		reasonKeys = append(reasonKeys, t)
	}
	sort.Slice(reasonKeys, func(i, j int) bool {
		return attemptIndex(diag.StrategiesAttempted, reasonKeys[i]) < attemptIndex(diag.StrategiesAttempted, reasonKeys[j])
	})

	reasons := make([]string, 0, len(reasonKeys))
	for _, t := range reasonKeys {
		reasons = append(reasons, fmt.Sprintf("%s: %s", t, diag.StrategyErrors[t]))
	}

	msg := fmt.Sprintf("All strategies failed. Attempted: %s. %s", strings.Join(tags, ", "), strings.Join(reasons, "; "))

	return fetch.Result{
		Success:      false,
		StatusCode:   last.StatusCode,
		IsAuthError:  last.IsAuthError,
		ErrorMessage: msg,
	}
}

func attemptIndex(attempted []fetch.Tag, tag fetch.Tag) int {
	for i, t := range attempted {
		if t == tag {
			return i
		}
	}
	return len(attempted)
}
