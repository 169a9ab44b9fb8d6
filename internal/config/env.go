package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// must returns a required variable and exits the process when it is unset
// or empty.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must for integers.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envOr parses an optional variable.  Empty and unparsable values yield d.
func envOr[T any](k string, d T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	out, err := parse(v)
	if err != nil {
		return d
	}
	return out
}

func envStr(k, d string) string {
	return envOr(k, d, func(s string) (string, error) { return s, nil })
}

func envInt(k string, d int) int { return envOr(k, d, strconv.Atoi) }

func envDur(k string, d time.Duration) time.Duration { return envOr(k, d, time.ParseDuration) }

func envDecimal(k string, d decimal.Decimal) decimal.Decimal {
	return envOr(k, d, decimal.NewFromString)
}

// envBool accepts the strconv forms plus yes/no and on/off.
func envBool(k string, d bool) bool {
	return envOr(k, d, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		return strconv.ParseBool(s)
	})
}
