package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("swap")

	first := gen.Next()
	second := gen.NextFunc()()

	if first != "swap-1" || second != "swap-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); len(issued) != 2 || issued[1] != "swap-2" {
		t.Fatalf("unexpected issued identifiers: %v", issued)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset("req")

	if next := gen.Next(); next != "req-1" {
		t.Fatalf("expected req-1 after reset, got %q", next)
	}
	if issued := gen.Issued(); len(issued) != 1 {
		t.Fatalf("expected reset to clear history, got %v", issued)
	}
}
