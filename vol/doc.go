/*
Package vol holds the primitives shared by every segedit package: voxel and cube
coordinates, inclusive bounding boxes, the leveled package logger, and the error
values reported by the segmentation engine.

Coordinates are signed 32-bit integers in global voxel space at magnification 1.
Cube coordinates are obtained by floor division so negative coordinates partition
the same way as positive ones.
*/
package vol
