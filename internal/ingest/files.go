package ingest

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/oladayo-ade/solarbill/constants"
)

// MaxDocumentMB caps how large a document may be before it is rejected from
// ingestion rather than shipped to a provider.
const MaxDocumentMB = 10

// LoadedDocument is a spool file read into the form the pipeline wants.
type LoadedDocument struct {
	SourcePath   string
	Text         string // populated for .txt bills
	ImageDataURL string // populated for raster images
	Raw          []byte // original bytes, for the rasterizer fallback
}

// LoadDocument reads one spool file. Text files become bill text, images
// become data URLs for vision providers, and anything else (PDF) is carried
// as raw bytes for the rasterizer.
func LoadDocument(path string) (*LoadedDocument, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if st.Size() > int64(MaxDocumentMB)*1024*1024 {
		return nil, fmt.Errorf("document too large: %d bytes", st.Size())
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := &LoadedDocument{SourcePath: path, Raw: b}
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch {
	case ext == "txt":
		doc.Text = string(b)
		doc.Raw = nil
	case constants.IsImageExt(ext):
		doc.ImageDataURL = asDataURL(b, ext)
	}
	return doc, nil
}

func asDataURL(b []byte, ext string) string {
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b)
}
