/*
Package poolmap decodes pool storage layout maps.

A pool map arrives from the control plane as an opaque buffer stamped with
a version number. This node does not run the placement algorithm; it only
needs the map's node set (to form the pool's communication group) and its
version number (cached per stream and on the pool object). Parse validates
that the buffer decodes and that the embedded version matches the version
advertised alongside it; any mismatch is rejected as invalid input before
the map reaches pool creation.

Map versions advance monotonically; a pool object with a live communication
group always holds a parsed map, because group formation requires it.
*/
package poolmap
