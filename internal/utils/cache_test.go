package utils

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := GetCache()
	c.Set("k", "v", time.Minute)
	if got := c.Get("k"); got != "v" {
		t.Errorf("Get = %v", got)
	}
	c.Delete("k")
	if got := c.Get("k"); got != nil {
		t.Errorf("Get after Delete = %v", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := GetCache()
	c.Set("short", 1, -time.Second)
	if got := c.Get("short"); got != nil {
		t.Errorf("expired entry returned: %v", got)
	}
}

func TestRandStringLength(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := RandString(8)
		if len(s) != 8 {
			t.Fatalf("len = %d", len(s))
		}
		seen[s] = true
	}
	if len(seen) < 90 {
		t.Errorf("only %d distinct ids in 100 draws", len(seen))
	}
}
