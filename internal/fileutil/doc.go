// Package fileutil holds the filesystem primitives the review executor relies
// on: atomic document writes, no-clobber moves with a verified cross-device
// fallback, and collision-free name allocation.
package fileutil
