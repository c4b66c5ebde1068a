// Package operator holds the running decoding modifiers imposed by F=2
// operator descriptors, threaded explicitly through expansion rather than
// stashed in package-level globals.
package operator

import (
	"errors"
	"fmt"
)

// ErrOperatorMisuse reports an F=2 operator used in a position the standard
// forbids. Wrapped by the specific error returned, so callers can match it
// with errors.Is regardless of which misuse triggered it.
var ErrOperatorMisuse = errors.New("operator: misuse")

// referenceKey identifies the element (X,Y) that an override reference
// defined inside a 203 new-reference block applies to.
type referenceKey struct{ X, Y uint8 }

// Context is the running OperatorContext: every subsequent element's
// effective width/scale/reference is this struct applied on top of its
// Table B row.
type Context struct {
	AddWidth    int  // op 201: added to every element's data_width
	ScaleDelta  int  // op 202: added to every element's scale
	AddAssocBits int // op 204: extra bits read as an associated field before each element

	// CharFieldBits, when non-nil, overrides the width of the very next
	// CCITT-IA5 read (op 208) and is cleared after that one read.
	CharFieldBits *int

	// LocalWidthBits, when non-nil, overrides the width of the very next
	// element read regardless of its Table B width (op 206) and is cleared
	// after that one read.
	LocalWidthBits *int

	// DifferenceBits is added to width, and scale/reference are bumped,
	// by op 207 until explicitly cancelled with Y=0.
	DifferenceBits int
	increaseScale  int
	increaseRefMul int64

	// newReferenceActive marks an open 203 block; newReferenceWidth is the
	// bit width each subsequent element read defines (rather than reads) a
	// reference from, until the closing 203,255/203,0.
	newReferenceActive bool
	newReferenceWidth  int
	referencesOverride map[referenceKey]int64

	// skipRemaining counts down elements to skip for value extraction
	// (still expanded) under an active op 21 "data not present" block.
	skipRemaining int
}

// NewContext returns a zeroed OperatorContext: no modifiers active.
func NewContext() *Context {
	return &Context{}
}

// Apply updates the context for operator descriptor (X,Y). It never emits
// a value and never returns a non-nil error; the one OperatorMisuse check,
// a 203 block left dangling at the end of expansion, is made by
// Context.Close.
func (c *Context) Apply(x, y uint8) error {
	switch x {
	case 1: // change data width
		if y == 0 {
			c.AddWidth = 0
		} else {
			c.AddWidth = int(y) - 128
		}
	case 2: // change scale
		if y == 0 {
			c.ScaleDelta = 0
		} else {
			c.ScaleDelta = int(y) - 128
		}
	case 3: // change reference
		switch {
		case y == 0:
			c.referencesOverride = nil
			c.newReferenceActive = false
		case y == 255:
			c.newReferenceActive = false
		default:
			c.newReferenceActive = true
			c.newReferenceWidth = int(y)
			if c.referencesOverride == nil {
				c.referencesOverride = make(map[referenceKey]int64)
			}
		}
	case 4: // add associated field
		c.AddAssocBits = int(y)
	case 6: // signify data width for local descriptor
		if y == 0 {
			c.LocalWidthBits = nil
		} else {
			w := int(y)
			c.LocalWidthBits = &w
		}
	case 7: // increase scale, reference, width
		if y == 0 {
			c.increaseScale = 0
			c.increaseRefMul = 0
			c.DifferenceBits = 0
		} else {
			c.increaseScale = int(y)
			c.increaseRefMul = pow10i64(int(y))
			c.DifferenceBits = (10*int(y) + 2 + 2) / 3 // ceil((10*Y+2)/3)
		}
	case 8: // change CCITT-IA5 width
		if y == 0 {
			c.CharFieldBits = nil
		} else {
			w := int(y) * 8
			c.CharFieldBits = &w
		}
	case 21: // data not present for next Y descriptors
		c.skipRemaining = int(y)
	default:
		// 05 (signify character), 22-37 (quality/bitmap): tracked by the
		// expander directly (05 emits an inline read, 22-37 pass raw bits
		// through); no persistent context state here.
	}
	return nil
}

// pow10i64 returns 10^n as an int64 for small non-negative n.
func pow10i64(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// EffectiveWidth returns the data width to read for an element whose Table
// B width is baseWidth.
func (c *Context) EffectiveWidth(baseWidth int) int {
	return baseWidth + c.AddWidth + c.DifferenceBits
}

// EffectiveScale returns the scale to apply for an element whose Table B
// scale is baseScale.
func (c *Context) EffectiveScale(baseScale int) int {
	return baseScale + c.ScaleDelta + c.increaseScale
}

// EffectiveReference returns the reference to apply for an element (x,y)
// whose Table B reference is baseReference, honoring any active 203
// override and the op-207 reference multiplier.
func (c *Context) EffectiveReference(x, y uint8, baseReference int64) int64 {
	if c.referencesOverride != nil {
		if ref, ok := c.referencesOverride[referenceKey{x, y}]; ok {
			return ref
		}
	}
	if c.increaseRefMul != 0 {
		return baseReference * c.increaseRefMul
	}
	return baseReference
}

// DefiningReference reports whether the context is mid-203-block, in which
// case the next element read *defines* rather than reads a reference.
func (c *Context) DefiningReference() (width int, active bool) {
	return c.newReferenceWidth, c.newReferenceActive
}

// SetOverride installs a defined reference for (x,y), consumed while a 203
// block is active.
func (c *Context) SetOverride(x, y uint8, ref int64) {
	if c.referencesOverride == nil {
		c.referencesOverride = make(map[referenceKey]int64)
	}
	c.referencesOverride[referenceKey{x, y}] = ref
}

// TakeCharFieldBits returns and clears an active op-208 width override,
// if any.
func (c *Context) TakeCharFieldBits() (width int, ok bool) {
	if c.CharFieldBits == nil {
		return 0, false
	}
	w := *c.CharFieldBits
	c.CharFieldBits = nil
	return w, true
}

// TakeLocalWidthBits returns and clears an active op-206 width override, if
// any.
func (c *Context) TakeLocalWidthBits() (width int, ok bool) {
	if c.LocalWidthBits == nil {
		return 0, false
	}
	w := *c.LocalWidthBits
	c.LocalWidthBits = nil
	return w, true
}

// ShouldSkip reports whether the next element is under an active op-21
// "data not present" block, decrementing its remaining count.
func (c *Context) ShouldSkip() bool {
	if c.skipRemaining <= 0 {
		return false
	}
	c.skipRemaining--
	return true
}

// Close reports OperatorMisuse if a 203 new-reference block was left open
// at the end of expansion.
func (c *Context) Close() error {
	if c.newReferenceActive {
		return fmt.Errorf("operator: dangling new-reference (203) block at end of expansion: %w", ErrOperatorMisuse)
	}
	return nil
}
