// Package service drives the order book from a command stream. It is the
// only writer of the book and coordinates the command journal, the fill
// outbox and metrics around each command.
package service
