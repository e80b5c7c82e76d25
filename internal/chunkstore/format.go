package chunkstore

import "bytes"

const defaultExt = ".webm"

var extFormats = map[string]string{
	".webm": "webm",
	".ogg":  "ogg",
	".wav":  "wav",
	".mp3":  "mp3",
	".m4a":  "mp4",
	".flac": "flac",
}

// sniffExt inspects the container magic at the start of data.
// Continuation fragments of time-sliced recordings carry no header and return "".
func sniffExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ".webm"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ".wav"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return ".m4a"
	case bytes.HasPrefix(data, []byte("ID3")):
		return ".mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ".mp3"
	}
	return ""
}
