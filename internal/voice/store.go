package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidAudioFilename = errors.New("voice: invalid audio filename")
	ErrAudioNotFound        = errors.New("voice: audio not found")
)

// AudioFilename 根据科室名生成广播音频的文件名，只保留 [A-Za-z0-9_-]，"/" 换成 "-"，其余字符换成 "_"
func AudioFilename(department string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == '/':
			return '-'
		default:
			return '_'
		}
	}, department)
	return fmt.Sprintf("emergency_%s.mp3", safe)
}

// ValidateFilename 拒绝任何可能造成路径穿越的文件名
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" ||
		strings.Contains(name, "/") ||
		strings.Contains(name, `\`) ||
		strings.Contains(name, "..") {
		return ErrInvalidAudioFilename
	}
	return nil
}

// AudioStore 把广播音频保存在一个目录中
type AudioStore struct {
	dir string
}

func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("voice: create audio dir: %w", err)
	}
	return &AudioStore{dir: dir}, nil
}

func (s *AudioStore) Save(name string, data []byte) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}

	// 先写临时文件再重命名，读取方不会看到写了一半的音频
	tmp, err := os.CreateTemp(s.dir, ".audio-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *AudioStore) Read(name string) ([]byte, error) {
	if err := ValidateFilename(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrAudioNotFound
	}
	return data, err
}
