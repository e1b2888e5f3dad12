// Package ir provides the representation tags and tagged program values
// threaded through the compilation pipeline.
//
// This package is the foundational layer: all other internal packages
// import ir; ir imports nothing internal. A program is always paired with
// the Rep tag describing its current shape, and the only way to look
// inside a tagged value is to unwrap it against an expected tag. There is
// no implicit conversion between representations; every transition is an
// explicit pass.
package ir
