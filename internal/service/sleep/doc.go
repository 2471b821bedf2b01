// Package sleep implements the sleep action: open an SSH session to a
// device, detect its OS and issue the platform's suspend command.
package sleep
