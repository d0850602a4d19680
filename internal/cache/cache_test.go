package cache

import (
	"strings"
	"testing"
)

func TestBuildKeyIsCaseAndOrderSensitive(t *testing.T) {
	c := &ResultCache{}

	// Capitalization and word order change the correct reformulation output,
	// so they must change the key too.
	base := c.buildKey("De aap")
	for _, query := range []string{
		"de aap",
		"aap de",
		"aap De",
		"De  aap",
	} {
		if got := c.buildKey(query); got == base {
			t.Errorf("buildKey(%q) collides with buildKey(%q)", query, "De aap")
		}
	}
}

func TestBuildKeyTrimsSurroundingWhitespace(t *testing.T) {
	c := &ResultCache{}
	base := c.buildKey("aap noot mies")
	for _, query := range []string{
		" aap noot mies",
		"aap noot mies  ",
		"\taap noot mies\n",
	} {
		if got := c.buildKey(query); got != base {
			t.Errorf("buildKey(%q) = %q, want %q", query, got, base)
		}
	}
}

func TestBuildKeyDistinguishesQueries(t *testing.T) {
	c := &ResultCache{}
	if c.buildKey("aap noot") == c.buildKey("aap mies") {
		t.Error("different queries must hash to different keys")
	}
}

func TestBuildKeyPrefix(t *testing.T) {
	c := &ResultCache{}
	key := c.buildKey("aap")
	if !strings.HasPrefix(key, keyPrefix) {
		t.Errorf("key %q lacks prefix %q", key, keyPrefix)
	}
	// 16 hash bytes hex-encoded.
	if got := len(key) - len(keyPrefix); got != 32 {
		t.Errorf("hash suffix length = %d, want 32", got)
	}
}
