// Frontline Perception System
// Copyright (C) 2020-2025 TurbineOne LLC
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mimer sniffs footage files to decide how a viewer should treat
// their picture.
package mimer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aofei/mimesniffer"

	"github.com/TurbineOne/viewer-output/pkg/params"
)

const (
	MediaTypeJPEG     = "image/jpeg"
	MediaTypeJPEG2000 = "image/jp2"
	MediaTypeM3U      = "application/x-mpegurl"
	MediaTypeMP2T     = "video/mp2t"
	MediaTypeNITF     = "application/vnd.nitf"
	MediaTypeY4M      = "video/x-yuv4mpeg"

	UnknownMediaType = "application/octet-stream"
)

// isVideoTsSignature returns true if the given buffer is an MPEG transport
// stream: a 0x47 sync byte at the start of every 188 byte packet.
func isVideoTsSignature(buffer []byte) bool {
	const (
		tsSignature         = 0x47
		tsSignatureInterval = 188
	)

	if len(buffer) < tsSignatureInterval {
		return false
	}

	for i := 0; i < len(buffer); i += tsSignatureInterval {
		if buffer[i] != tsSignature {
			return false
		}
	}

	return true
}

// isNITFSignature returns true if the buffer has a NITF 2.1 file signature.
func isNITFSignature(buffer []byte) bool {
	return strings.HasPrefix(string(buffer), "NITF02.10")
}

func isM3USignature(buffer []byte) bool {
	return strings.HasPrefix(string(buffer), "#EXTM3U")
}

// isY4MSignature matches uncompressed YUV4MPEG2 streams, which test-pattern
// generators commonly produce.
func isY4MSignature(buffer []byte) bool {
	return strings.HasPrefix(string(buffer), "YUV4MPEG2 ")
}

func init() {
	mimesniffer.Register(MediaTypeMP2T, isVideoTsSignature)
	mimesniffer.Register(MediaTypeNITF, isNITFSignature)
	mimesniffer.Register(MediaTypeM3U, isM3USignature)
	mimesniffer.Register(MediaTypeY4M, isY4MSignature)
}

// GetContentTypeFromReader sniffs the content type from the start of reader.
func GetContentTypeFromReader(reader io.Reader) (string, error) {
	const fingerprintSize = 512

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, fingerprintSize)

	n, err := io.ReadFull(reader, buffer)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}

		return UnknownMediaType, fmt.Errorf("mime check failed read: %w", err)
	}

	return mimesniffer.Sniff(buffer[:n]), nil
}

// GetContentType returns the content type of the file at sourcePath.
func GetContentType(sourcePath string) string {
	f, err := os.Open(sourcePath)
	if err != nil {
		return UnknownMediaType
	}

	defer func() {
		_ = f.Close()
	}()

	mimeType, _ := GetContentTypeFromReader(f)

	return mimeType
}

// VideoTypeFromContentType reports how footage of content type ct appears as
// a video stream, and false if it has no picture at all. Single images are
// stills; animated GIFs and everything under video/ are motion video.
func VideoTypeFromContentType(ct string) (params.VideoType, bool) {
	mediaType, _, _ := strings.Cut(ct, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case mediaType == "image/gif":
		return params.VideoTypeVideo, true
	case mediaType == MediaTypeNITF, strings.HasPrefix(mediaType, "image/"):
		return params.VideoTypeStill, true
	case mediaType == MediaTypeM3U, strings.HasPrefix(mediaType, "video/"):
		return params.VideoTypeVideo, true
	}

	return params.VideoTypeVideo, false
}

// ProbeVideoType sniffs the file at path and classifies it with
// VideoTypeFromContentType.
func ProbeVideoType(path string) (params.VideoType, bool) {
	return VideoTypeFromContentType(GetContentType(path))
}
