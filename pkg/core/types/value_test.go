package types

import (
	"encoding/json"
	"testing"
)

func TestValueParseAndAccess(t *testing.T) {
	v, err := ParseValue([]byte(`{"city":"Lisbon","days":3,"verbose":true,"tags":["a","b"],"note":null}`))
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}

	city, ok := v.Field("city")
	if !ok {
		t.Fatal("missing city field")
	}
	if s, ok := city.Str(); !ok || s != "Lisbon" {
		t.Errorf("city = %q, %v", s, ok)
	}

	days, _ := v.Field("days")
	if n, ok := days.Num(); !ok || n != 3 {
		t.Errorf("days = %v, %v", n, ok)
	}

	tags, _ := v.Field("tags")
	items, ok := tags.Items()
	if !ok || len(items) != 2 {
		t.Fatalf("tags = %v, %v", items, ok)
	}

	note, _ := v.Field("note")
	if !note.IsNull() {
		t.Error("note should be null")
	}

	// Accessing with the wrong kind reports false, not a zero value lie.
	if _, ok := city.Num(); ok {
		t.Error("Num on a string must report false")
	}
}

func TestValueCanonicalSortsKeys(t *testing.T) {
	a, _ := ParseValue([]byte(`{"b":2,"a":1}`))
	b, _ := ParseValue([]byte(`{"a":1,"b":2}`))

	ca := string(a.Canonical(nil))
	cb := string(b.Canonical(nil))
	if ca != cb {
		t.Errorf("canonical forms differ: %s vs %s", ca, cb)
	}

	c, _ := ParseValue([]byte(`{"a":1,"b":3}`))
	if cc := string(c.Canonical(nil)); cc == ca {
		t.Error("different values must canonicalize differently")
	}
}

func TestValueCanonicalDistinguishesKinds(t *testing.T) {
	// "1" the string and 1 the number must not collide.
	if Number(1).Equal(String("1")) {
		t.Error("number and string canonical forms collide")
	}
	if Bool(true).Equal(String("true")) {
		t.Error("bool and string canonical forms collide")
	}
}

func TestValueMarshalRoundTrip(t *testing.T) {
	v := Object(map[string]Value{
		"name":  String("x"),
		"count": Number(2),
		"flag":  Bool(false),
		"list":  Array(Number(1), Null()),
	})

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !v.Equal(back) {
		t.Errorf("round trip changed the value: %s", data)
	}
}

func TestValueEqual(t *testing.T) {
	if !Number(1.5).Equal(Number(1.5)) {
		t.Error("equal numbers")
	}
	if Number(1).Equal(String("1")) {
		t.Error("kind mismatch must not compare equal")
	}
	a := Object(map[string]Value{"k": Array(String("v"))})
	b := Object(map[string]Value{"k": Array(String("v"))})
	if !a.Equal(b) {
		t.Error("structurally identical objects must compare equal")
	}
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	if _, err := FromAny(map[string]any{"n": 42.0}); err != nil {
		t.Errorf("decoded JSON map should convert: %v", err)
	}
	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("expected an error for an unsupported type")
	}
}
