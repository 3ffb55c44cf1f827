// Package storetest provides a conformance test suite for store backends.
//
// All backends (memory, badger, sqlstore) should pass these tests. The suite
// verifies that every implementation satisfies the behavioral contract in
// pkg/store, catching regressions when backend code changes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) store.Store {
//	        return memory.New()
//	    })
//	}
//
// The factory receives *testing.T so it can call t.TempDir() for backends
// that need filesystem paths and t.Cleanup for teardown.
package storetest
