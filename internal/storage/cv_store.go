// Package storage は応募時に添付される履歴書(PDF)をローカルディスクに保存する。
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge はファイルサイズが上限を超えた場合のエラー。
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrNotPDF はファイルの中身がPDFではない場合のエラー。
	ErrNotPDF = errors.New("file is not a PDF")
)

// sniffLen は形式判定に読む先頭バイト数。
const sniffLen = 512

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// CVStore は履歴書ファイルの保存先のインターフェース。
type CVStore interface {
	// Save はファイルを保存し、保存したファイル名（ベース名のみ）を返す。
	Save(username string, jobID int64, r io.Reader) (string, error)
	// Remove は保存済みファイルを削除する。存在しない場合もエラーにしない。
	Remove(filename string) error
	// Path はファイル名を保存先のパスに変換する。ベース名以外はfalseを返す。
	Path(filename string) (string, bool)
}

// LocalStore はディレクトリにファイルを保存するCVStore実装。
type LocalStore struct {
	dir      string
	maxBytes int64
}

// NewLocalStore はLocalStoreを生成する。ディレクトリが無ければ作成する。
func NewLocalStore(dir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save は {username}_{jobID}_{random}.pdf の名前でファイルを保存する。
// 先頭バイトでPDFかを判定し、上限を超えた場合は書きかけのファイルを削除する。
func (s *LocalStore) Save(username string, jobID int64, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if !mimetype.Detect(head).Is("application/pdf") {
		return "", ErrNotPDF
	}

	name := fmt.Sprintf("%s_%d_%s.pdf",
		unsafeNameChars.ReplaceAllString(username, "_"),
		jobID,
		strings.ReplaceAll(uuid.NewString(), "-", ""),
	)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return "", ErrTooLarge
	}

	return name, nil
}

// Remove は保存済みファイルを削除する。
func (s *LocalStore) Remove(filename string) error {
	path, ok := s.Path(filename)
	if !ok {
		return fmt.Errorf("invalid file name: %q", filename)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Path はベース名のみを受け付け、保存ディレクトリ内のパスを返す。
func (s *LocalStore) Path(filename string) (string, bool) {
	if filename == "" || strings.HasPrefix(filename, ".") ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", false
	}
	return filepath.Join(s.dir, filename), true
}

// compile-time interface check
var _ CVStore = (*LocalStore)(nil)
