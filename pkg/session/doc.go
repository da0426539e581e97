/*
Package session implements session management and persistence
orchestration for conversation snapshots.

It serializes concurrent access to a session across goroutines and,
with a distributed locker, across replicas, so read-modify-write
cycles against a StateStore never lose updates.
*/
package session
