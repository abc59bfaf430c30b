package soffice

import (
	"context"
	"testing"
)

func TestNewConverter_DefaultBinary(t *testing.T) {
	if c := NewConverter(""); c.bin != "soffice" {
		t.Errorf("bin = %q, want soffice", c.bin)
	}
	if c := NewConverter("libreoffice"); c.bin != "libreoffice" {
		t.Errorf("bin = %q, want libreoffice", c.bin)
	}
}

func TestToDocx_MissingBinary(t *testing.T) {
	c := NewConverter("soffice-binary-that-does-not-exist")
	_, err := c.ToDocx(context.Background(), "memo.doc", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}
