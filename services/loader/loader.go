package loader

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/smotta/flow-rag-api/models"
	"go.uber.org/zap"
)

// DefaultExtensions are the file types loaded when none are configured.
var DefaultExtensions = []string{".txt", ".pdf", ".md"}

// Config holds the corpus folder settings
type Config struct {
	FolderPath string
	Extensions []string
	Recurse    bool
}

// Loader walks a corpus folder and builds document records with content
// and integrity metadata. Unreadable files are logged and skipped; a
// corpus load never fails because of a single bad file.
type Loader struct {
	config     Config
	extensions map[string]bool
	logger     *zap.Logger
}

// NewLoader creates a loader for the configured folder. The folder must
// exist and be a directory.
func NewLoader(config Config, logger *zap.Logger) (*Loader, error) {
	info, err := os.Stat(config.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("invalid folder path %s: %w", config.FolderPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path %s is not a directory", config.FolderPath)
	}

	extensions := config.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	supported := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		supported[strings.ToLower(ext)] = true
	}

	return &Loader{
		config:     config,
		extensions: supported,
		logger:     logger,
	}, nil
}

// Load walks the corpus folder and returns a record per supported file
func (l *Loader) Load() []models.DocumentRecord {
	var records []models.DocumentRecord

	walk := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if entry.IsDir() {
			if !l.config.Recurse && path != l.config.FolderPath {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !l.extensions[ext] {
			l.logger.Debug("unsupported file type, skipping", zap.String("file", entry.Name()))
			return nil
		}

		record, loadErr := l.loadFile(path, ext)
		if loadErr != nil {
			l.logger.Error("failed to load document",
				zap.String("path", path),
				zap.Error(loadErr))
			return nil
		}

		records = append(records, record)
		l.logger.Info("loaded document",
			zap.String("file", record.FileName),
			zap.Int64("size", record.FileSize))
		return nil
	}

	if err := filepath.WalkDir(l.config.FolderPath, walk); err != nil {
		l.logger.Error("corpus walk failed", zap.Error(err))
	}

	l.logger.Info("corpus load complete",
		zap.Int("documents", len(records)),
		zap.String("folder", l.config.FolderPath))
	return records
}

func (l *Loader) loadFile(path, ext string) (models.DocumentRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("stat failed: %w", err)
	}

	var content string
	switch ext {
	case ".pdf":
		content, err = extractPDFText(path)
	default:
		content, err = readTextFile(path)
	}
	if err != nil {
		return models.DocumentRecord{}, err
	}

	hash, err := computeSHA256(path)
	if err != nil {
		return models.DocumentRecord{}, err
	}

	relative, err := filepath.Rel(l.config.FolderPath, path)
	if err != nil {
		relative = info.Name()
	}

	return models.DocumentRecord{
		FilePath:         path,
		FileName:         info.Name(),
		FileSize:         info.Size(),
		FileExtension:    ext,
		FileLastModified: info.ModTime(),
		FileRelativePath: relative,
		SHA256Hash:       hash,
		Content:          content,
	}, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}
	return string(data), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
