package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var minimalPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func newTestStore(t *testing.T, maxBytes int64) (*LocalStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, maxBytes)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return s, dir
}

func TestNewLocalStore_CreatesDir(t *testing.T) {
	_, dir := newTestStore(t, 1024)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("アップロードディレクトリが作成されていない: %v", err)
	}
	if !info.IsDir() {
		t.Error("ディレクトリではない")
	}
}

func TestSave_NamesFileAndWritesContent(t *testing.T) {
	s, dir := newTestStore(t, 1024)

	name, err := s.Save("jdoe", 42, bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pattern := regexp.MustCompile(`^jdoe_42_[0-9a-f]{32}\.pdf$`)
	if !pattern.MatchString(name) {
		t.Errorf("file name = %q, want match %s", name, pattern)
	}

	got, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, minimalPDF) {
		t.Error("保存内容が一致しない")
	}
}

func TestSave_UniqueNames(t *testing.T) {
	s, _ := newTestStore(t, 1024)

	a, err := s.Save("jdoe", 1, bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := s.Save("jdoe", 1, bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Errorf("同じファイル名が生成された: %q", a)
	}
}

func TestSave_SanitizesUsername(t *testing.T) {
	s, _ := newTestStore(t, 1024)

	name, err := s.Save("../evil user", 3, bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(name, `/\ `) || strings.HasPrefix(name, ".") {
		t.Errorf("unsafe file name: %q", name)
	}
	if !strings.HasPrefix(name, "___evil_user_3_") {
		t.Errorf("file name = %q", name)
	}
}

func TestSave_RejectsNonPDF(t *testing.T) {
	s, dir := newTestStore(t, 1024)

	_, err := s.Save("jdoe", 1, strings.NewReader("just some text"))
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("err = %v, want ErrNotPDF", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("ファイルが残っている: %d", len(entries))
	}
}

func TestSave_TooLarge(t *testing.T) {
	s, dir := newTestStore(t, int64(len(minimalPDF)+10))

	big := append(append([]byte{}, minimalPDF...), bytes.Repeat([]byte("x"), 100)...)
	_, err := s.Save("jdoe", 1, bytes.NewReader(big))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("書きかけのファイルが残っている: %d", len(entries))
	}
}

func TestSave_ExactlyAtLimit(t *testing.T) {
	s, _ := newTestStore(t, int64(len(minimalPDF)))

	if _, err := s.Save("jdoe", 1, bytes.NewReader(minimalPDF)); err != nil {
		t.Fatalf("上限ちょうどは保存できること: %v", err)
	}
}

func TestRemove(t *testing.T) {
	s, dir := newTestStore(t, 1024)

	name, err := s.Save("jdoe", 1, bytes.NewReader(minimalPDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Remove(name); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Error("ファイルが削除されていない")
	}

	// 2回目は存在しないがエラーにしない
	if err := s.Remove(name); err != nil {
		t.Errorf("存在しないファイルの削除でエラー: %v", err)
	}
}

func TestPath(t *testing.T) {
	s, dir := newTestStore(t, 1024)

	tests := []struct {
		name   string
		input  string
		wantOK bool
	}{
		{"通常のファイル名", "jdoe_1_abc.pdf", true},
		{"空文字", "", false},
		{"親ディレクトリ", "../secret", false},
		{"サブディレクトリ", "a/b.pdf", false},
		{"バックスラッシュ", `a\b.pdf`, false},
		{"隠しファイル", ".env", false},
		{"ドット2つ", "..", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := s.Path(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Path(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && path != filepath.Join(dir, tt.input) {
				t.Errorf("path = %q", path)
			}
		})
	}
}
