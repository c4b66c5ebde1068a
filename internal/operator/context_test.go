package operator

import (
	"errors"
	"testing"
)

func TestChangeDataWidth(t *testing.T) {
	c := NewContext()
	if err := c.Apply(1, 135); err != nil {
		t.Fatal(err)
	}
	if got := c.EffectiveWidth(10); got != 17 {
		t.Fatalf("EffectiveWidth = %d, want 17", got)
	}
	if err := c.Apply(1, 0); err != nil {
		t.Fatal(err)
	}
	if got := c.EffectiveWidth(10); got != 10 {
		t.Fatalf("after cancel EffectiveWidth = %d, want 10", got)
	}
}

func TestChangeScale(t *testing.T) {
	c := NewContext()
	_ = c.Apply(2, 125) // 125-128 = -3
	if got := c.EffectiveScale(5); got != 2 {
		t.Fatalf("EffectiveScale = %d, want 2", got)
	}
}

func TestAddAssociatedField(t *testing.T) {
	c := NewContext()
	_ = c.Apply(4, 8)
	if c.AddAssocBits != 8 {
		t.Fatalf("AddAssocBits = %d, want 8", c.AddAssocBits)
	}
	_ = c.Apply(4, 0)
	if c.AddAssocBits != 0 {
		t.Fatalf("AddAssocBits after cancel = %d, want 0", c.AddAssocBits)
	}
}

func TestNewReferenceBlock(t *testing.T) {
	c := NewContext()
	_ = c.Apply(3, 12)
	width, active := c.DefiningReference()
	if !active || width != 12 {
		t.Fatalf("DefiningReference = (%d,%v), want (12,true)", width, active)
	}
	c.SetOverride(0, 1, -500)
	if got := c.EffectiveReference(0, 1, 999); got != -500 {
		t.Fatalf("EffectiveReference = %d, want -500", got)
	}
	_ = c.Apply(3, 255)
	_, active = c.DefiningReference()
	if active {
		t.Fatal("expected block closed after 203,255")
	}
	// override persists until 203,0 clears it
	if got := c.EffectiveReference(0, 1, 999); got != -500 {
		t.Fatalf("override should persist after block close, got %d", got)
	}
	_ = c.Apply(3, 0)
	if got := c.EffectiveReference(0, 1, 999); got != 999 {
		t.Fatalf("EffectiveReference after 203,0 = %d, want 999 (cleared)", got)
	}
}

func TestCloseDetectsDanglingBlock(t *testing.T) {
	c := NewContext()
	_ = c.Apply(3, 12)
	err := c.Close()
	if err == nil {
		t.Fatal("expected OperatorMisuse for dangling 203 block")
	}
	if !errors.Is(err, ErrOperatorMisuse) {
		t.Fatalf("Close() error = %v, want errors.Is ErrOperatorMisuse", err)
	}
}

func TestLocalDescriptorWidth(t *testing.T) {
	c := NewContext()
	_ = c.Apply(6, 12)
	w, ok := c.TakeLocalWidthBits()
	if !ok || w != 12 {
		t.Fatalf("TakeLocalWidthBits = (%d,%v), want (12,true)", w, ok)
	}
	if _, ok := c.TakeLocalWidthBits(); ok {
		t.Fatal("expected local width bits cleared after one take")
	}
	_ = c.Apply(6, 9)
	_ = c.Apply(6, 0)
	if _, ok := c.TakeLocalWidthBits(); ok {
		t.Fatal("expected 206,0 to cancel the pending override")
	}
}

func TestSkipDataNotPresent(t *testing.T) {
	c := NewContext()
	_ = c.Apply(21, 2)
	if !c.ShouldSkip() || !c.ShouldSkip() {
		t.Fatal("expected 2 elements to be skipped")
	}
	if c.ShouldSkip() {
		t.Fatal("expected skip count exhausted")
	}
}

func TestCharFieldBits(t *testing.T) {
	c := NewContext()
	_ = c.Apply(8, 3) // Y*8 = 24 bits
	w, ok := c.TakeCharFieldBits()
	if !ok || w != 24 {
		t.Fatalf("TakeCharFieldBits = (%d,%v), want (24,true)", w, ok)
	}
	if _, ok := c.TakeCharFieldBits(); ok {
		t.Fatal("expected char field bits cleared after one take")
	}
}

func TestIncreaseScaleRefWidth(t *testing.T) {
	c := NewContext()
	_ = c.Apply(7, 2)
	if got := c.EffectiveScale(0); got != 2 {
		t.Fatalf("EffectiveScale = %d, want 2", got)
	}
	if got := c.EffectiveReference(0, 0, 3); got != 300 {
		t.Fatalf("EffectiveReference = %d, want 300", got)
	}
	wantWidth := (10*2 + 2 + 2) / 3
	if got := c.EffectiveWidth(0); got != wantWidth {
		t.Fatalf("EffectiveWidth = %d, want %d", got, wantWidth)
	}
	_ = c.Apply(7, 0)
	if got := c.EffectiveWidth(0); got != 0 {
		t.Fatalf("after cancel EffectiveWidth = %d, want 0", got)
	}
}
