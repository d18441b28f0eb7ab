// Package conv provides checked integer conversions.
//
// Use them on values read from storage (record sizes, offsets, descriptor
// lengths) before they size an allocation or a read. Values bounded by
// construction can use plain casts.
package conv
