// Package session implements the command-queue bridge between synchronous
// callers and the Telegram session provider.
//
// A single worker goroutine exclusively owns the live provider connection
// and its session lock. Callers interact with the Manager facade, whose
// methods enqueue immutable Commands and block until the paired Result
// arrives. Because there is exactly one inbound queue and one worker, all
// commands against a Manager are totally ordered; cross-process safety for
// the shared session file is delegated to sessionlock.
package session
