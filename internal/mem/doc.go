// Package mem provides aligned byte allocation for tile buffers.
package mem
