package chat

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

type line struct {
	text string
	err  error
}

// readLines delivers lines from r without their line terminator. A final
// line without a newline is delivered before the EOF. The goroutine exits
// after the first error or when done is closed.
func readLines(r io.Reader, done <-chan struct{}) <-chan line {
	ch := make(chan line)
	go func() {
		defer close(ch)
		br := bufio.NewReader(r)
		for {
			s, err := br.ReadString('\n')
			if err == nil || (errors.Is(err, io.EOF) && s != "") {
				select {
				case ch <- line{text: strings.TrimRight(s, "\r\n")}:
				case <-done:
					return
				}
				if err == nil {
					continue
				}
			}
			select {
			case ch <- line{err: err}:
			case <-done:
			}
			return
		}
	}()
	return ch
}
