// Package ocr provides the tesseract-backed recognition engine for
// scanned PDF pages.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes page images through the tesseract C library. A
// fresh gosseract client is created per call: clients are not safe for
// concurrent use, and per-call lifetime keeps native memory bounded when
// many documents are processed back to back.
type Tesseract struct{}

func NewTesseract() *Tesseract { return &Tesseract{} }

// Recognize runs tesseract on one page image. lang is a '+'-joined
// language spec ("vie+eng"); empty keeps tesseract's default. Pages are
// treated as a single uniform text block, the shape rasterized PDF pages
// have.
func (t *Tesseract) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if lang != "" {
		if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return "", fmt.Errorf("set language %q: %w", lang, err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image %s: %w", imagePath, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
