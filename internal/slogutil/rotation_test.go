package slogutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":      0,
		"2048":  2048,
		"512B":  512,
		"1KB":   1024,
		"1.5kb": 1536,
		"10 MB": 10 << 20,
		"1GB":   1 << 30,
		"huge":  0,
		"-1MB":  0,
		"InfMB": 0,
		"12 TB": 0,
	}
	for in, want := range tests {
		if got := ParseSize(in); got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestOpenLogFile_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "devjourney.log")
	for _, line := range []string{"one\n", "two\n"} {
		w, err := OpenLogFile(path, "", 0)
		if err != nil {
			t.Fatalf("OpenLogFile: %v", err)
		}
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatal(err)
		}
		w.Close()
	}
	data, _ := os.ReadFile(path)
	if string(data) != "one\ntwo\n" {
		t.Errorf("file = %q", data)
	}
}

func TestOpenLogFile_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devjourney.log")
	w, err := OpenLogFile(path, "16B", 2)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}
	for _, chunk := range []string{"aaaaaaaaaa\n", "bbbbbbbbbb\n", "cccccccccc\n", "dddddddddd\n"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	read := func(name string) string {
		data, _ := os.ReadFile(name)
		return string(data)
	}
	if got := read(path); got != "dddddddddd\n" {
		t.Errorf("current = %q", got)
	}
	if got := read(path + ".1"); got != "cccccccccc\n" {
		t.Errorf("backup 1 = %q", got)
	}
	if got := read(path + ".2"); got != "bbbbbbbbbb\n" {
		t.Errorf("backup 2 = %q", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only two backups should be kept")
	}
}

func TestOpenLogFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devjourney.log")
	w, err := OpenLogFile(path, "8", 0)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("first-line\n"))
	w.Write([]byte("second\n"))
	w.Close()

	if data, _ := os.ReadFile(path); strings.Contains(string(data), "first") {
		t.Errorf("old content kept: %q", data)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("backup written with maxBackups 0")
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	w, err := OpenLogFile(filepath.Join(t.TempDir(), "x.log"), "1KB", 1)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("write after close should fail")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
