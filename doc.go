/*
Segedit is an interactive segmentation editor for large 3d label volumes, written
in Go.  Voxels carry 64-bit supervoxel labels and are held in cubes that are
loaded on demand from an embedded key-value store.  Labels are grouped into
user-visible objects by a segmentation graph, and edits are made with a brush,
by merging and unmerging objects, and by splitting objects along connected
components or view planes.

Packages

	vol         points, bounds, errors and logging shared by all packages
	orderedset  insertion-ordered set used for the object selection
	cubestore   label cubes, the resident store and its badger backing
	editor      brush geometry, painting and region reads
	segment     the segmentation graph of objects and subobjects
	split       connected-component and plane splits
	notify      mutation records sent to log files or Kafka
	config      TOML configuration
	session     ties the above together and runs edit scripts

Running an edit script

The segedit command runs a JSON script of operations against a volume:

	% segedit -config=volume.toml run edits.json

A script sets an optional starting brush and lists operations:

	{
	  "brush": {"shape": "round", "mode": "3d", "radius": 4, "view": "xy"},
	  "ops": [
	    {"op": "load", "min": [0, 0, 0], "max": [255, 255, 255]},
	    {"op": "select-brush", "at": [120, 80, 40]},
	    {"op": "merge"},
	    {"op": "split", "at": [130, 80, 40]},
	    {"op": "flush"}
	  ]
	}

Every change to the graph or the voxels produces a mutation record carrying the
session id and a mutation id, written to the configured mutation log and Kafka
topic.
*/
package segedit
