// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"fmt"
	"io"
	"os"
)

// AsyncLogger decouples log writers from the latency of the underlying
// io.Writer (typically a lumberjack.Logger doing file rotation) by
// buffering writes on a channel and draining them from a single
// background goroutine. When the buffer is full, writes are dropped
// rather than blocking the caller.
type AsyncLogger struct {
	w       io.Writer
	entries chan []byte
	done    chan struct{}
}

// NewAsyncLogger starts a background goroutine that drains writes to w.
// bufferSize bounds how many pending writes may queue before new writes
// are dropped.
func NewAsyncLogger(w io.Writer, bufferSize int) *AsyncLogger {
	l := &AsyncLogger{
		w:       w,
		entries: make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AsyncLogger) run() {
	defer close(l.done)
	for entry := range l.entries {
		l.w.Write(entry)
	}
}

// Write enqueues a copy of p for asynchronous delivery to the underlying
// writer. It always reports len(p), nil; when the buffer is full, the
// entry is dropped and a warning goes to stderr.
func (l *AsyncLogger) Write(p []byte) (int, error) {
	entry := make([]byte, len(p))
	copy(entry, p)

	select {
	case l.entries <- entry:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close drains every buffered write to the underlying writer, then
// closes it if it implements io.Closer.
func (l *AsyncLogger) Close() error {
	close(l.entries)
	<-l.done

	if closer, ok := l.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
