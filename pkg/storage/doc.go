// Package storage writes writeup PDFs into the output directory.
//
// The storage package handles:
//   - Checking that the output directory exists and is writable
//   - Mapping machine names to sanitized file paths
//   - Saving downloads with atomic write operations
//   - Detecting writeups that are already on disk
//
// Features:
//   - Atomic file writes using temporary files and rename
//   - Chunked copying with an optional progress sink
//   - Thread-safe bookkeeping of files saved during the run
//
// Usage:
//
//	manager, err := storage.NewManager("output_directory")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.Exists("Lame") {
//	    path, n, err := manager.Save("Lame", resp.Body, 1024, bar)
//	    if err != nil {
//	        log.Printf("Failed to save writeup: %v", err)
//	    }
//	}
package storage
