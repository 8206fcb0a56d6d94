package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// FileText is a read-only capability that extracts text from a local file.
type FileText struct {
	name        string
	description string
	paramDesc   string
	label       string // output banner, e.g. "OCR Output"
	emptyNote   string // shown when nothing was extracted
	toolName    string // used in failure messages
	extractor   ports.TextExtractor
}

// NewReadTextFromImage wraps an OCR extractor.
func NewReadTextFromImage(extractor ports.TextExtractor) *FileText {
	return &FileText{
		name:        "read_text_from_image",
		description: "Extracts text from an image file using local OCR (Optical Character Recognition). Supported formats: jpg, png, bmp.",
		paramDesc:   "The absolute path to the local image file.",
		label:       "OCR Output",
		emptyNote:   "No text detected",
		toolName:    "OCR",
		extractor:   extractor,
	}
}

// NewTranscribeAudioFile wraps a speech-to-text extractor.
func NewTranscribeAudioFile(extractor ports.TextExtractor) *FileText {
	return &FileText{
		name:        "transcribe_audio_file",
		description: "Transcribes a local audio or movie file into text using a local Whisper model. Supported formats: wav (16kHz), mp4, mp3 (may require conversion).",
		paramDesc:   "The absolute path to the local audio or video file.",
		label:       "Transcriber Output",
		emptyNote:   "No speech detected",
		toolName:    "Transcription",
		extractor:   extractor,
	}
}

func (f *FileText) Name() string        { return f.name }
func (f *FileText) Description() string { return f.description }
func (f *FileText) IsUnsafe() bool      { return false }
func (f *FileText) Parameters() any     { return schema("filePath", f.paramDesc) }

func (f *FileText) Execute(ctx context.Context, args json.RawMessage) string {
	path, msg, ok := stringArg(args, "filePath")
	if !ok {
		return msg
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Sprintf("Error: File not found at %s", path)
	}
	if err != nil {
		return fmt.Sprintf("Error executing %s tool: %v", f.toolName, err)
	}

	text, err := f.extractor.ExtractText(ctx, path)
	if err != nil {
		return fmt.Sprintf("Error executing %s tool: %v", f.toolName, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Sprintf("[%s: %s]", f.label, f.emptyNote)
	}
	return fmt.Sprintf("[%s]:\n%s", f.label, text)
}
