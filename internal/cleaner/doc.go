// Package cleaner computes which pre-existing files under a build destination
// directory are stale and hands them to a deletion collaborator.
//
// A Stage sits in a file-producing pipeline. Every file the build is about to
// write passes through OnFile, which registers the file (after extension
// remapping) and every ancestor directory up to the destination root as kept.
// When the stream ends, Finalize sends the accumulated pattern list to the
// Deleter exactly once.
//
// # Pattern format
//
// The pattern list always starts with a recursive delete-everything glob for
// the destination followed by a keep pattern for the destination itself:
//
//	lib/**
//	!lib
//	!lib/foo.js
//	!lib/extra
//	!lib/extra/bar.js
//
// Entries prefixed with "!" are protected. Keeping every ancestor of a kept
// path matters because a nested glob deletion would otherwise remove an
// intermediate directory together with the protected file inside it.
//
// # Usage
//
//	cfg, err := cleaner.Normalize("lib", cleaner.Options{
//	    Extension: map[string]any{".coffee": []string{".js", ".js.map"}},
//	    Exclude:   "vendor/**",
//	})
//	if err != nil {
//	    return err
//	}
//	stage := cleaner.NewStage(cfg, deleter.New(), log)
//	for _, rec := range records {
//	    stage.OnFile(rec)
//	}
//	report, err := stage.Finalize(ctx)
//
// A Stage is single use and must be driven from one goroutine.
package cleaner
