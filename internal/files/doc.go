// Package files provides file system operations and discovery utilities
// for the IAPD converter. Everything goes through an afero.Fs so the batch
// driver can be exercised against an in-memory file system.
//
// This package contains two main components:
//
// Discovery: Finds record files in a directory (non-recursive, case-sensitive
// "*.xml" match through doublestar).
//
// Manager: Existence checks, collision-free output naming and exclusive file
// creation.
//
// Example usage:
//
//	fs := afero.NewOsFs()
//	xmlFiles, err := files.NewDiscovery(fs).FindXMLFiles("xml")
//
//	out, err := files.NewManager(fs).NextFreePath("output.csv")
//	// output.csv, or output_01.csv if it already exists
package files
