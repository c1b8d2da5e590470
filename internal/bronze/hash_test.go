package bronze

import "testing"

func TestContentHash_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"a":1,"b":2,"c":{"x":true,"y":null}}`)
	b := []byte(`{"c":{"y":null,"x":true},"b":2,"a":1}`)

	if ContentHash(a) != ContentHash(b) {
		t.Errorf("hashes differ for reordered keys:\n a=%s\n b=%s", ContentHash(a), ContentHash(b))
	}
}

func TestContentHash_NumberFormatIndependent(t *testing.T) {
	a := []byte(`{"price":1}`)
	b := []byte(`{"price":1.0}`)

	if ContentHash(a) != ContentHash(b) {
		t.Errorf("1 and 1.0 hash differently")
	}
}

func TestContentHash_WhitespaceIndependent(t *testing.T) {
	a := []byte(`{"a": [1, 2, 3]}`)
	b := []byte(`{"a":[1,2,3]}`)

	if ContentHash(a) != ContentHash(b) {
		t.Errorf("whitespace changes the hash")
	}
}

func TestContentHash_DifferentPayloadsDiffer(t *testing.T) {
	a := []byte(`{"a":1}`)
	b := []byte(`{"a":2}`)

	if ContentHash(a) == ContentHash(b) {
		t.Errorf("distinct payloads collide")
	}
}

func TestContentHash_NonJSONDeterministic(t *testing.T) {
	body := []byte("not json at all <html>")

	if ContentHash(body) != ContentHash(body) {
		t.Errorf("non-JSON body hash is not deterministic")
	}
	if ContentHash(body) == ContentHash([]byte("other garbage")) {
		t.Errorf("distinct non-JSON bodies collide")
	}
}
