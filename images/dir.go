package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource 从本地目录读取图片（不递归）。
type DirSource struct {
	Root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

func (s *DirSource) Name() string {
	return "dir"
}

// List 返回目录下的普通文件名，按文件名排序
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("images: list %s: %w", s.Root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, notFound(name, nil)
	}
	f, err := os.Open(filepath.Join(s.Root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name, err)
		}
		return nil, fmt.Errorf("images: open %s: %w", name, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("images: stat %s: %w", name, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, notFound(name, nil)
	}
	return f, nil
}
