//go:build llama

package llamacpp

// Link directives for the in-process runtime: libllama.so is found next to
// the binary at run time ($ORIGIN) and in ./bin at link time.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
*/
import "C"
