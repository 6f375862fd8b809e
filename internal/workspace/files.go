package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxFileSize caps what the editor will load.
const MaxFileSize = 10 * 1024 * 1024

var (
	ErrTraversal   = errors.New("path escapes project folder")
	ErrFileTooBig  = errors.New("file too large")
	ErrBinaryWrite = errors.New("cannot write to binary file")
)

// binaryExtensions are never editable.
var binaryExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "ico": {}, "svg": {}, "webp": {},
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {},
	"zip": {}, "tar": {}, "gz": {}, "rar": {}, "7z": {},
	"exe": {}, "dll": {}, "so": {}, "dylib": {}, "app": {}, "bin": {},
	"mp3": {}, "mp4": {}, "wav": {}, "ogg": {}, "flac": {}, "avi": {}, "mov": {},
	"ttf": {}, "otf": {}, "woff": {}, "woff2": {}, "eot": {},
	"psd": {}, "ai": {}, "sketch": {},
	"class": {}, "jar": {}, "war": {},
	"dat": {}, "sqlite": {}, "db": {},
}

// Node is one entry in a project file tree.
type Node struct {
	Type     string `json:"type"` // "file" or "folder"
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// FileContent is what a read returns. Content is empty for binary files.
type FileContent struct {
	Content  string `json:"content"`
	IsBinary bool   `json:"is_binary"`
	Size     int64  `json:"size"`
}

// IsBinaryFile decides by extension first, then by content sniffing.
func IsBinaryFile(filename string, content []byte) bool {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		if _, ok := binaryExtensions[strings.ToLower(filename[i+1:])]; ok {
			return true
		}
	}
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// SanitizePath resolves rel against base and rejects anything escaping it.
func SanitizePath(base, rel string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	full := filepath.Clean(filepath.Join(absBase, rel))
	if full != absBase && !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrTraversal, rel)
	}
	return full, nil
}

// BuildFileTree walks a project folder. Hidden entries are skipped and
// empty directories omitted, matching what the editor sidebar shows.
func BuildFileTree(base string) ([]Node, error) {
	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			return []Node{}, nil
		}
		return nil, err
	}
	return buildTree(base, "")
}

func buildTree(base, rel string) ([]Node, error) {
	entries, err := os.ReadDir(filepath.Join(base, rel))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		childRel := filepath.ToSlash(filepath.Join(rel, e.Name()))

		if e.IsDir() {
			children, err := buildTree(base, filepath.Join(rel, e.Name()))
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			nodes = append(nodes, Node{Type: "folder", Name: e.Name(), Path: childRel, Children: children})
			continue
		}

		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		nodes = append(nodes, Node{Type: "file", Name: e.Name(), Path: childRel, Size: size})
	}
	return nodes, nil
}

// ReadFile loads one project file for the editor.
func ReadFile(base, rel string) (*FileContent, error) {
	full, err := SanitizePath(base, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, os.ErrNotExist
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooBig, info.Size())
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}

	fc := &FileContent{Size: info.Size()}
	if IsBinaryFile(rel, data) || !utf8.Valid(data) {
		fc.IsBinary = true
		return fc, nil
	}
	fc.Content = string(data)
	return fc, nil
}

// WriteFile saves editor content back, creating parent directories as
// needed. Binary targets are refused.
func WriteFile(base, rel, content string) (int64, error) {
	full, err := SanitizePath(base, rel)
	if err != nil {
		return 0, err
	}
	if IsBinaryFile(rel, nil) {
		return 0, fmt.Errorf("%w: %s", ErrBinaryWrite, rel)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	data := []byte(content)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
