package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the trimmed value of name and whether it was set to a
// non-empty value.
func Lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func String(name, def string) string {
	if v, ok := Lookup(name); ok {
		return v
	}
	return def
}

func Int(name string, def int) int {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Millis reads an integer millisecond count.
func Millis(name string, def time.Duration) time.Duration {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// Seconds reads an integer second count.
func Seconds(name string, def time.Duration) time.Duration {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
