package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firmsim/peripheral/sdcard"
)

func TestBuildAndList(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.gco")
	big := filepath.Join(dir, "big.gco")
	if err := os.WriteFile(small, []byte("G28\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(big, bytes.Repeat([]byte{'x'}, 1000), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "sd.img")
	entries, err := build(out, []string{small, big}, 16)
	if err != nil {
		t.Fatalf("build() = %v", err)
	}
	want := []sdcard.Entry{
		{Name: "small.gco", Block: 1, Size: 4},
		{Name: "big.gco", Block: 2, Size: 1000},
	}
	if len(entries) != len(want) {
		t.Fatalf("build() = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}

	got, err := list(out)
	if err != nil {
		t.Fatalf("list() = %v", err)
	}
	if len(got) != 2 || got[1] != want[1] {
		t.Fatalf("list() = %v", got)
	}

	img, err := sdcard.OpenImage(out)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()
	if img.Blocks() != 16 {
		t.Fatalf("Blocks() = %d, want 16", img.Blocks())
	}
	block := make([]byte, sdcard.BlockSize)
	if err := img.ReadBlock(1, block); err != nil {
		t.Fatal(err)
	}
	if string(block[:4]) != "G28\n" || block[4] != 0 {
		t.Fatalf("block 1 = %q", block[:8])
	}
	if err := img.ReadBlock(3, block); err != nil {
		t.Fatal(err)
	}
	if block[1000-sdcard.BlockSize-1] != 'x' || block[1000-sdcard.BlockSize] != 0 {
		t.Fatal("big.gco tail is not padded")
	}
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "part.gco")
	b := filepath.Join(dir, "b", "part.gco")
	for _, p := range []string{a, b} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("M105\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	_, err := build(filepath.Join(dir, "sd.img"), []string{a, b}, 0)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("build() = %v, want duplicate name error", err)
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntries(&buf, []sdcard.Entry{{Name: "a.gco", Block: 1, Size: 7}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a.gco") || !strings.HasPrefix(buf.String(), "NAME") {
		t.Fatalf("output = %q", buf.String())
	}
}
