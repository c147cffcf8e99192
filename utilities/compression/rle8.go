package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// maxRLE8Run is the longest run a single three-byte group can hold: the two
// marker bytes plus 255 repeats.
const maxRLE8Run = 257

// countingBufferedWriter buffers writes so that single-byte groups don't turn
// into single-byte writes on the underlying stream.
type countingBufferedWriter struct {
	writer       *bufio.Writer
	bytesWritten int64
}

func (w *countingBufferedWriter) write(data ...byte) error {
	n, err := w.writer.Write(data)
	w.bytesWritten += int64(n)
	return err
}

// CompressRLE8 reads bytes from the input and writes compressed data to the
// output until the input is exhausted. The return value is the number of bytes
// written, only valid if no error occurred.
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	grouper := NewRLEGrouper(input)
	out := countingBufferedWriter{writer: bufio.NewWriter(output)}

	for {
		run, getRunErr := grouper.GetNextRun()
		if getRunErr != nil && !errors.Is(getRunErr, io.EOF) {
			return out.bytesWritten, getRunErr
		}

		for run.RunLength >= 2 {
			groupLength := run.RunLength
			if groupLength > maxRLE8Run {
				groupLength = maxRLE8Run
			}

			err := out.write(run.Byte, run.Byte, byte(groupLength-2))
			if err != nil {
				return out.bytesWritten, err
			}
			run.RunLength -= groupLength
		}

		if run.RunLength == 1 {
			err := out.write(run.Byte)
			if err != nil {
				return out.bytesWritten, err
			}
		}

		// Errors other than EOF were handled above.
		if getRunErr != nil {
			return out.bytesWritten, out.writer.Flush()
		}
	}
}

// DecompressRLE8 reverses [CompressRLE8]. The return value is the number of
// bytes written to `output`, i.e. the size of the original data.
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	lastByteRead := -1
	totalBytesWritten := int64(0)

	for {
		currentByte, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return totalBytesWritten, nil
			}
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}

		var currentOutput []byte
		if int(currentByte) == lastByteRead {
			// Second byte of a pair; a repeat count follows.
			repeatCountByte, err := source.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = fmt.Errorf(
						"%w: missing repeat count after two %02x bytes",
						io.ErrUnexpectedEOF,
						uint(lastByteRead),
					)
				}
				return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
			}

			// The first byte of the pair was already written, so this is one
			// more than the repeat count rather than two.
			currentOutput = bytes.Repeat([]byte{currentByte}, int(repeatCountByte)+1)

			// Runs longer than 257 bytes are split into separate groups that
			// start over with their own pair.
			lastByteRead = -1
		} else {
			lastByteRead = int(currentByte)
			currentOutput = []byte{currentByte}
		}

		n, err := output.Write(currentOutput)
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, fmt.Errorf("failed to write to output: %w", err)
		}
	}
}
