// Package importer loads content dumps into the store.
//
// A dump is a YAML or JSON file with one optional list per collection:
//
//	articles:
//	  - id: a1
//	    title: ذكاء اصطناعي
//	    views: 1500
//	privacyContent:
//	  - title: سياسة الخصوصية
//	users:
//	  - id: u1
//	    interests: [برمجة]
//
// Each file is imported in its own transaction. Items failing validation
// are counted and reported in Statistics.ErrorMessages; the rest of the
// file is still imported. Items without an ID get a name-based UUID so that
// re-importing the same dump updates rows in place.
//
// # Incremental Imports
//
// The SHA-256 of every imported file is stored in the key-value table.
// Unchanged files are skipped unless Config.Force is set:
//
//	im := importer.New(store, importer.WithOnImport(func(*importer.Statistics) {
//	    searcher.InvalidateCache()
//	}))
//	stats, err := im.ImportPaths(ctx, []string{"./content"}, nil)
//
// Only one import runs at a time per Importer; a concurrent call returns
// ErrImportInProgress.
//
// # Watching
//
// Watch imports a directory once and then re-imports dump files as they
// are written, collapsing bursts of events with a debounce timer.
package importer
