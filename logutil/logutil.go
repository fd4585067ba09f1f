package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
)

const (
	logFileName  = "tray_translate_debug.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup routes the standard logger. With file logging off the output is
// discarded: the resident must keep stdout clean so run-once delegation can
// print translations there. Otherwise logs append to a size-rotated file.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	w, err := newRotatingWriter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(w)
}

// rotatingWriter appends to logFileName and shifts archives .1 through .3
// once a write would push the file past maxSizeBytes. Size is tracked in
// memory so writes do not Stat the file.
type rotatingWriter struct {
	f    *os.File
	size int64
}

func newRotatingWriter() (*rotatingWriter, error) {
	f, err := openLogFile()
	if err != nil {
		return nil, err
	}
	w := &rotatingWriter{f: f}
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return w, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if w.size+int64(len(p)) > maxSizeBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate drops the oldest archive, shifts the rest up, and reopens a fresh
// base file.
func (w *rotatingWriter) rotate() error {
	_ = w.f.Close()
	_ = os.Remove(archiveName(maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(i), archiveName(i+1))
	}
	_ = os.Rename(logFileName, archiveName(1))

	f, err := openLogFile()
	if err != nil {
		return err
	}
	w.f = f
	w.size = 0
	return nil
}

func openLogFile() (*os.File, error) {
	return os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func archiveName(n int) string { return fmt.Sprintf("%s.%d", logFileName, n) }

// RedactKey masks an API key for logging, keeping only the first and last
// four characters.
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return k[:4] + "..." + k[len(k)-4:]
}
