// Package retry implements exponential-backoff retry for the LLM capability's
// provider calls, adapted from the teacher's utils/retry package.
package retry

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/kris-hansen/recipeforge/utils/config"
)

// Config holds configuration for retry operations.
type Config struct {
	MaxRetries  int           // Maximum number of retry attempts
	InitialWait time.Duration // Initial wait time before first retry
	MaxWait     time.Duration // Maximum wait time between retries
	Factor      float64       // Exponential backoff factor
}

// DefaultConfig provides sensible defaults for retry operations.
var DefaultConfig = Config{
	MaxRetries:  5,
	InitialWait: 1 * time.Second,
	MaxWait:     60 * time.Second,
	Factor:      2.0,
}

// WithRetry executes operation, retrying it while shouldRetry(err) is true.
func WithRetry(operation func() (interface{}, error), shouldRetry func(error) bool, cfg Config) (interface{}, error) {
	var result interface{}
	var err error
	wait := cfg.InitialWait

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = operation()

		if err == nil || !shouldRetry(err) {
			return result, err
		}

		if attempt == cfg.MaxRetries {
			return nil, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if t := extractRetryTime(err.Error()); t > 0 {
			retryWait = t
		}

		config.DebugLog("[Retry] received retryable error: %v. retrying in %v (attempt %d/%d)",
			err, retryWait, attempt+1, cfg.MaxRetries)
		log.Printf("rate limit detected, retrying in %v (attempt %d/%d)...\n", retryWait, attempt+1, cfg.MaxRetries)

		time.Sleep(retryWait)
		wait = time.Duration(float64(wait) * cfg.Factor)
	}

	return nil, fmt.Errorf("unexpected error in retry logic")
}

// Is429Error reports whether err looks like a rate-limit response.
func Is429Error(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "too many requests")
}

// Is5xxOr429 additionally retries on server errors, used by LLM providers
// whose transient failures aren't always plain rate limits.
func Is5xxOr429(err error) bool {
	if Is429Error(err) {
		return true
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func extractRetryTime(errMsg string) time.Duration {
	patterns := []string{"retry in ", "retry after ", "try again in ", "try again after "}

	for _, pattern := range patterns {
		lower := strings.ToLower(errMsg)
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		timeStr := errMsg[idx+len(pattern):]

		var seconds int
		if _, err := fmt.Sscanf(timeStr, "%ds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if _, err := fmt.Sscanf(timeStr, "%d seconds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}
