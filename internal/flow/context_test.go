package flow

import (
	"errors"
	"testing"
)

func TestContext_SeedAndGet(t *testing.T) {
	c := NewContext(map[string]string{"area": "94107", "ages": "5,8"})

	v, err := c.Get("area")
	if err != nil {
		t.Fatalf("Get(area) failed: %v", err)
	}
	if v != "94107" {
		t.Errorf("Get(area) = %v, want 94107", v)
	}
	if c.Writer("ages") != InputWriter {
		t.Errorf("Writer(ages) = %q, want %q", c.Writer("ages"), InputWriter)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestContext_GetMissing(t *testing.T) {
	c := NewContext(nil)

	_, err := c.Get("weather_forecast")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	var te *TaskError
	if !errors.As(err, &te) || te.Key != "weather_forecast" {
		t.Errorf("expected TaskError with key weather_forecast, got %#v", err)
	}
}

func TestContext_OverwriteKeepsOrder(t *testing.T) {
	c := NewContext(nil)
	c.SetBy("a", "first", "1")
	c.SetBy("b", "second", "2")
	c.SetBy("c", "first", "3")

	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "first" || keys[1] != "second" {
		t.Errorf("Keys() = %v, want [first second]", keys)
	}
	if v, _ := c.String("first"); v != "3" {
		t.Errorf("first = %q, want 3 (last write wins)", v)
	}
	if c.Writer("first") != "c" {
		t.Errorf("Writer(first) = %q, want c", c.Writer("first"))
	}
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	c := NewContext(map[string]string{"area": "94107"})
	snap := c.Snapshot()

	c.Set("area", "10001")
	c.Set("weather_forecast", "good")

	if v, _ := snap.String("area"); v != "94107" {
		t.Errorf("snapshot area = %q, want 94107", v)
	}
	if snap.Has("weather_forecast") {
		t.Error("snapshot should not see keys written after it was taken")
	}

	m := snap.Map()
	m["area"] = "mutated"
	if v, _ := snap.String("area"); v != "94107" {
		t.Errorf("mutating Map() result changed snapshot: %q", v)
	}
}

func TestContext_StringRendersNonText(t *testing.T) {
	c := NewContext(nil)
	c.Set("count", 3)

	if v, ok := c.String("count"); !ok || v != "3" {
		t.Errorf("String(count) = %q, %v; want 3, true", v, ok)
	}
}
