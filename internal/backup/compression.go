package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies a supported compression algorithm
type CompressionType string

const (
	CompressionTypeNone CompressionType = "none"
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeZstd CompressionType = "zstd"
	CompressionTypeLZ4  CompressionType = "lz4"
)

// Compressor wraps a writer with a compressing stream
type Compressor interface {
	NewWriter(w io.Writer, level int) (io.WriteCloser, error)
	Extension() string
	GetAlgorithm() CompressionType
	GetDefaultLevel() int
}

// CompressionManager manages the registered compressors
type CompressionManager struct {
	compressors map[CompressionType]Compressor
}

// NewCompressionManager creates a compression manager with all supported
// algorithms registered
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[CompressionType]Compressor),
	}

	cm.compressors[CompressionTypeGzip] = &GzipCompressor{}
	cm.compressors[CompressionTypeZstd] = &ZstdCompressor{}
	cm.compressors[CompressionTypeLZ4] = &LZ4Compressor{}

	return cm
}

// GetCompressor returns the compressor for the specified algorithm
func (cm *CompressionManager) GetCompressor(algorithm CompressionType) (Compressor, error) {
	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return compressor, nil
}

// SupportedAlgorithms returns the names of all supported algorithms
func (cm *CompressionManager) SupportedAlgorithms() []CompressionType {
	algorithms := make([]CompressionType, 0, len(cm.compressors)+1)
	algorithms = append(algorithms, CompressionTypeNone)
	for algorithm := range cm.compressors {
		algorithms = append(algorithms, algorithm)
	}
	return algorithms
}

// CompressFile compresses path in place, producing path plus the algorithm's
// extension and removing the original on success. The compressed path is
// returned. With CompressionTypeNone the file is left untouched. On failure
// the partially written output is removed and the original is kept.
func (cm *CompressionManager) CompressFile(path string, algorithm CompressionType, level int) (string, error) {
	if algorithm == CompressionTypeNone {
		return path, nil
	}

	compressor, err := cm.GetCompressor(algorithm)
	if err != nil {
		return "", err
	}
	if level == 0 {
		level = compressor.GetDefaultLevel()
	}

	src, err := os.Open(path)
	if err != nil {
		return "", NewCompressionError("failed to open file for compression", err)
	}
	defer src.Close()

	outPath := path + compressor.Extension()
	out, err := os.Create(outPath)
	if err != nil {
		return "", NewCompressionError("failed to create compressed file", err)
	}

	writer, err := compressor.NewWriter(out, level)
	if err != nil {
		out.Close()
		os.Remove(outPath)
		return "", err
	}

	if _, err := io.Copy(writer, src); err != nil {
		writer.Close()
		out.Close()
		os.Remove(outPath)
		return "", NewCompressionError("failed to compress file", err)
	}

	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", NewCompressionError("failed to finalize compressed file", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", NewCompressionError("failed to close compressed file", err)
	}

	if err := os.Remove(path); err != nil {
		return "", NewCompressionError("failed to remove uncompressed file", err)
	}

	return outPath, nil
}

// GzipCompressor implements gzip compression
type GzipCompressor struct{}

func (gc *GzipCompressor) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	writer, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip writer", err)
	}
	return writer, nil
}

func (gc *GzipCompressor) Extension() string {
	return ".gz"
}

func (gc *GzipCompressor) GetAlgorithm() CompressionType {
	return CompressionTypeGzip
}

func (gc *GzipCompressor) GetDefaultLevel() int {
	return gzip.DefaultCompression
}

// ZstdCompressor implements Zstandard compression
type ZstdCompressor struct{}

func (zc *ZstdCompressor) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	encoderLevel := zstd.SpeedDefault
	switch {
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	writer, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, NewCompressionError("failed to create zstd encoder", err)
	}
	return writer, nil
}

func (zc *ZstdCompressor) Extension() string {
	return ".zst"
}

func (zc *ZstdCompressor) GetAlgorithm() CompressionType {
	return CompressionTypeZstd
}

func (zc *ZstdCompressor) GetDefaultLevel() int {
	return 3
}

// LZ4Compressor implements LZ4 compression
type LZ4Compressor struct{}

func (lc *LZ4Compressor) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	writer := lz4.NewWriter(w)
	if level > 6 {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, NewCompressionError("failed to set LZ4 high compression", err)
		}
	}
	return writer, nil
}

func (lc *LZ4Compressor) Extension() string {
	return ".lz4"
}

func (lc *LZ4Compressor) GetAlgorithm() CompressionType {
	return CompressionTypeLZ4
}

func (lc *LZ4Compressor) GetDefaultLevel() int {
	return 1
}
