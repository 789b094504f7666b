// Package types defines the record and state model, the store and driver
// contracts, configuration, and the standard errors shared by every layer of
// the StudySync synchronization engine.
//
// Route handlers and other collaborators depend on this package only: they
// call LocalStore and RemoteStore, and read merged views through the merge
// engine, without touching the local file or the remote connection directly.
package types
