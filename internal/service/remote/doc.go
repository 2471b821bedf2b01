// Package remote puts devices to sleep over SSH. It opens an
// authenticated session, detects the remote OS family by querying the
// shell, and dispatches the platform's suspend command without waiting
// for it to complete.
package remote
