// Package chat implements the interactive terminal loop: read a line, handle
// the stop and clear commands, otherwise stream the model's answer and print
// only the part of the cumulative text not printed yet.
package chat
