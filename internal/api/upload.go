// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/ksfoundation/ksf-web/internal/util"
)

// maxImageEdge bounds the longest edge of an uploaded image before it is
// forwarded to the content API.
const maxImageEdge = 1600

// jpegQuality is the re-encode quality for processed uploads.
const jpegQuality = 85

// ErrUploadTooLarge is returned when an upload exceeds the configured cap.
var ErrUploadTooLarge = fmt.Errorf("upload exceeds size limit")

// ErrUnsupportedImage is returned for uploads that are not a decodable
// JPEG, PNG, GIF or WebP image.
var ErrUnsupportedImage = fmt.Errorf("unsupported image format")

// AddImage decodes an uploaded image, corrects its EXIF orientation,
// downscales it to a bounded edge, re-encodes it, and attaches it to the
// form under a uuid-randomized filename. The cap is enforced on the
// original bytes; the backend enforces its own limit again server-side.
func (f *Form) AddImage(field, filename string, r io.Reader, maxBytes int64) error {
	data, err := readCapped(r, maxBytes)
	if err != nil {
		return err
	}

	format := detectFormat(data)
	if format == "" {
		return ErrUnsupportedImage
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	bounds := img.Bounds()
	if bounds.Dx() > maxImageEdge || bounds.Dy() > maxImageEdge {
		img = imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
	}

	encoded, contentType, ext, err := encodeImage(img, format)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	f.addFilePart(field, randomizedName(filename, ext), contentType, encoded)
	return nil
}

// AddAttachment attaches a non-image file as-is, subject only to the size cap.
func (f *Form) AddAttachment(field, filename string, r io.Reader, maxBytes int64) error {
	data, err := readCapped(r, maxBytes)
	if err != nil {
		return err
	}
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	f.addFilePart(field, randomizedName(filename, filepath.Ext(filename)), contentType, data)
	return nil
}

func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrUploadTooLarge
	}
	return data, nil
}

// randomizedName keeps a sanitized stem for operator readability but makes
// the stored name unique, the same convention the backend applies on disk.
// Bengali and other non-ASCII filenames are transliterated.
func randomizedName(original, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem = util.Slugify(stem)
	if stem == "" {
		stem = "upload"
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
}

// detectFormat detects the image format from raw bytes. TIFF is rejected
// (CVE-2023-36308 in disintegration/imaging).
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// readExifOrientation reads the EXIF orientation tag, returning 1 (normal)
// when it cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation normalizes an image according to its EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage re-encodes an image. WebP input is written back as JPEG since
// pure Go has no WebP encoder.
func encodeImage(img image.Image, format string) (data []byte, contentType, ext string, err error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
		contentType, ext = "image/png", ".png"
	case "gif":
		err = gif.Encode(&buf, img, nil)
		contentType, ext = "image/gif", ".gif"
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
		contentType, ext = "image/jpeg", ".jpg"
	}
	if err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), contentType, ext, nil
}
