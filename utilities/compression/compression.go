package compression

import (
	"bytes"
	"compress/gzip"
	"io"
)

// countingWriter counts the bytes successfully written to the wrapped stream.
type countingWriter struct {
	stream       io.Writer
	bytesWritten int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.stream.Write(p)
	w.bytesWritten += int64(n)
	return n, err
}

// CompressImage compresses a disk image using RLE8 and gzip.
//
// The returned int64 gives the number of compressed bytes written to the output
// stream. If an error occurred, the value is undefined and should not be used.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	counter := &countingWriter{stream: output}

	// Floppy images are small enough that the highest compression level costs
	// nothing noticeable.
	gzWriter, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	_, err = CompressRLE8(input, gzWriter)
	if err != nil {
		gzWriter.Close()
		return counter.bytesWritten, err
	}

	// Close writes the gzip footer, so it must succeed for the output to be
	// readable.
	err = gzWriter.Close()
	return counter.bytesWritten, err
}

// CompressImageToBytes is like [CompressImage] but returns the compressed
// image in a new byte slice.
func CompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := CompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecompressImage takes a gzipped, RLE8-encoded disk image and decompresses it
// to the original raw bytes.
//
// The returned int64 gives the number of bytes written to the output (i.e. the
// decompressed size of the image). If an error occurred, the value is undefined
// and should not be used.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, err
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// DecompressImageToBytes is like [DecompressImage] but returns the raw image in
// a new byte slice.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := DecompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
