// File: cmd/inview/main_test.go
package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	t.Run("writes the panic log", func(t *testing.T) {
		var (
			path    string
			content string
			code    = -1
		)
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			path, content = name, string(data)
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("layout exploded")
		}()

		assert.Equal(t, panicLogFile, path)
		assert.Contains(t, content, "panic: layout exploded")
		assert.Contains(t, content, "goroutine", "the stack trace is included")
		assert.Equal(t, 2, code)
	})

	t.Run("exits when the log cannot be written", func(t *testing.T) {
		code := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, code)
	})

	t.Run("does nothing without a panic", func(t *testing.T) {
		osWriteFile = func(string, []byte, os.FileMode) error {
			t.Fatal("no panic log expected")
			return nil
		}
		osExit = func(int) { t.Fatal("no exit expected") }

		func() {
			defer handlePanic()
		}()
	})
}
