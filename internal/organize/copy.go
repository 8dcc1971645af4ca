package organize

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// copyFileVerified copies src to dst for moves that cross filesystem
// boundaries, then re-reads dst from disk and compares size and SHA-256
// digest against what was streamed out of src. A failed copy or a failed
// verification removes dst so a broken duplicate never survives.
func copyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	srcHash := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHash))
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("flush destination: %w", err)
	}

	dstDigest, dstSize, err := digestFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if dstSize != written {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: wrote %d bytes, destination holds %d", written, dstSize)
	}
	if !bytes.Equal(srcHash.Sum(nil), dstDigest) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy verification failed: destination digest differs from source")
	}
	return nil
}

// digestFile re-reads path from disk and returns its SHA-256 digest and size.
func digestFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reopen destination: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, fmt.Errorf("verify destination: %w", err)
	}
	return h.Sum(nil), n, nil
}
