// Package tile implements the in-memory unit of array data.
//
// A Tile carries cell bytes together with the metadata needed to interpret
// them: element datatype, cell size, dimension count and storage format
// version. It is either unfiltered, holding raw cells in a buffer it owns or
// merely views, or filtered, holding the output of a filter pipeline in a
// container it always owns. Never both.
//
// Violations of that state machine, such as reading a filtered tile or
// zipping coordinates of an attribute tile, are programming errors and panic
// with an *InvalidStateError. Everything the caller cannot rule out in
// advance, such as allocation failures and out-of-range reads, is returned as
// an error.
//
// Basic usage:
//
//	t := tile.New()
//	if err := t.InitUnfiltered(tile.CurrentFormatVersion, tile.Int32, 40, 4, 0, true); err != nil {
//		return err
//	}
//	defer t.Release()
//
//	fmt.Println(t.CellNum()) // 10
package tile

// CurrentFormatVersion is the storage format version written by this package.
const CurrentFormatVersion uint32 = 5
