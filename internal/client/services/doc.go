// Package services holds the client's long-lived application services.
//
// AuthService tracks who is signed in and when the initial session lookup
// has settled; EntryService owns the locally cached list of text entries
// and applies fetch/save/delete results to it. Both are safe for concurrent
// use: backend calls run on their own goroutines, are raced against fixed
// deadlines, and their results are applied under a mutex in completion
// order. LoginHistoryService, LoginSessionService and BackupService are
// best-effort helpers wired into the CLI.
package services
